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

package text

import (
	"fmt"

	"github.com/fatih/color"
)

// DisableColors turns every helper below into a plain passthrough.
var DisableColors = false

func Sf(format string, a ...interface{}) string {
	return fmt.Sprintf(format, a...)
}

func paint(str string, attrs ...color.Attribute) string {
	if DisableColors {
		return str
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(str)
}

func Bold(str string) string {
	return paint(str, color.Bold)
}

func RedBG(str string) string {
	return paint(str, color.BgRed, color.FgHiWhite)
}

func IndigoBG(str string) string {
	return paint(str, color.BgBlue, color.FgHiWhite)
}

func Purple(str string) string {
	return paint(str, color.FgMagenta)
}

func Shakespeare(str string) string {
	return paint(str, color.FgHiCyan)
}

var backgrounds = []color.Attribute{
	color.BgRed,
	color.BgGreen,
	color.BgYellow,
	color.BgBlue,
	color.BgMagenta,
	color.BgCyan,
}

// ColorizeBG paints str on a background picked from its content, so the
// same key gets the same colour everywhere in a tree.
func ColorizeBG(str string) string {
	if str == "" {
		return str
	}
	sum := 0
	for _, r := range str {
		sum += int(r)
	}
	return paint(str, backgrounds[sum%len(backgrounds)], color.FgHiWhite)
}
