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

// Package text renders transactions and messages as human readable trees.
package text

import (
	"io"

	"github.com/gagliardetto/treeout"
)

type TreeEncoder struct {
	output io.Writer
	*treeout.Tree
}

type EncodableToTree interface {
	EncodeToTree(parent treeout.Branches)
}

func NewTreeEncoder(w io.Writer, doc string) *TreeEncoder {
	return &TreeEncoder{
		output: w,
		Tree:   treeout.New(doc),
	}
}

func (enc *TreeEncoder) WriteString(s string) (int, error) {
	return io.WriteString(enc.output, s)
}
