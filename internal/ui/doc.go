// Package ui implements the live thread watcher using bubbletea's Elm architecture.
//
// The watcher has four views:
//  1. [ContentsView] : The thread's generations, patched in place by live updates
//  2. [DetailView] : Full text of the selected generation in a scrollable viewport
//  3. [ComposeView] : Prompt input that submits a new generation into the thread
//  4. [FeedbackView] : Feedback input for completed content, with an optional regeneration prompt
//
// Live updates arrive on a channel fed by the live package and are folded into
// a [live.State]; each one is delivered to the (view) [Model] as a [Msg]. New
// generations are tracked locally so their updates apply as soon as they arrive.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, n, f, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
