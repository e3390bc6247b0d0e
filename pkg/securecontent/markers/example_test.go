// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package markers_test

import (
	"fmt"

	"github.com/aiku/securecontent/pkg/securecontent/markers"
)

func ExampleRewrite() {
	out, changed := markers.Rewrite("<p>hi</p>[reply]<p>the answer</p>[/reply]")
	fmt.Println(changed)
	fmt.Println(out)
	// Output:
	// true
	// <p>hi</p><div class="secure-wrapper" data-secure-type="reply">the answer</div>
}
