/*
 * Copyright 2022 Algrad Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
    `fmt`
    `os`

    `github.com/BNieuwenhuizen/algrad`
)

// OutputFile is where the compiled code-word stream ends up. It is only
// committed when the whole compilation succeeds.
const OutputFile = "test.bin"

func main() {
    if len(os.Args) != 2 {
        fmt.Fprintf(os.Stderr, "usage: %s <shader.spv>\n", os.Args[0])
        os.Exit(1)
    }

    buf, err := os.ReadFile(os.Args[1])
    if err != nil {
        fmt.Fprintln(os.Stderr, "algrad:", err)
        os.Exit(1)
    }

    words, err := algrad.Compile(buf)
    if err != nil {
        fmt.Fprintln(os.Stderr, "algrad:", err)
        os.Exit(1)
    }

    if err = os.WriteFile(OutputFile, algrad.MarshalWords(words), 0644); err != nil {
        fmt.Fprintln(os.Stderr, "algrad:", err)
        os.Exit(1)
    }
}
