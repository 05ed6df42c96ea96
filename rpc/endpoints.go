// Copyright 2021 github.com/gagliardetto
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

const (
	MainNetBeta_RPC = "https://api.mainnet-beta.solana.com"
	TestNet_RPC     = "https://api.testnet.solana.com"
	DevNet_RPC      = "https://api.devnet.solana.com"
	LocalNet_RPC    = "http://127.0.0.1:8899"
)

const (
	MainNetBeta_WS = "wss://api.mainnet-beta.solana.com"
	TestNet_WS     = "wss://api.testnet.solana.com"
	DevNet_WS      = "wss://api.devnet.solana.com"
	LocalNet_WS    = "ws://127.0.0.1:8900"
)
