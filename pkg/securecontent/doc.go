// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package securecontent gates parts of forum posts behind login or
// participation in the thread.
//
// Authors mark regions in a post with [login]...[/login] or
// [reply]...[/reply]. After the forum cooks the post to HTML, the decoration
// hook rewrites each marker pair into a wrapper element and either reveals it
// or replaces it with a mask telling the viewer what to do. Masking is a
// presentation layer only; access control of the underlying data lives
// elsewhere.
//
// # Core Types
//
// [Decorator] runs one decoration pass per cooked post element. It classifies
// the pass as preview or live ([ClassifyMode]), asks the [Oracle] at most once
// per pass whether the viewer has posted in the thread, and applies [Decide]
// to every wrapper.
//
// [Oracle] resolves participation through a process-wide [ReplyCache], a
// fast negative for viewers without any posts, a look for the viewer's own
// post on the page, and finally a [ThreadFetcher]. Fetch failures keep the
// content locked and are retried on the next pass.
//
// [Service] exposes the decorator over HTTP for hosts that render pages
// server-side.
//
// # Sub-packages
//
//   - markers finds region markers and rewrites them into wrapper elements.
//   - postfmt cooks composer markdown and builds plain-text excerpts.
package securecontent
