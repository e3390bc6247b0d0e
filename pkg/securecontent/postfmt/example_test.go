// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postfmt_test

import (
	"fmt"

	"github.com/aiku/securecontent/pkg/securecontent/postfmt"
)

func ExampleTruncate() {
	fmt.Println(postfmt.Truncate("Reply required. Please log in first.", 15))
	// Output: Reply required.…
}
