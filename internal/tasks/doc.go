// Package tasks orchestrates multi-step content workflows with real-time progress reporting.
//
// # Engines
//
//  1. [GenerationEngine] : Submit a prompt and follow it to a terminal status
//     - Opens the live channel before submitting
//     - Applies updates to a [live.State] seeded with the new record
//     - Returns once the record completes or fails, or the stream ends
//
//  2. [FeedbackEngine] : Record sentiment on completed content
//     - Bare sentiment words are stored directly
//     - Other text is analyzed first, then the result is stored
//     - Negative feedback can trigger a followed regeneration
//
//  3. [ExportEngine] : Write many threads to disk
//     - Fetches threads at a bounded rate
//     - Writes them with a small worker pool and a JSON manifest
//
// # Progress Reporting
//
// Every engine accepts an optional send-only [ProgressUpdate] channel. Sends
// never block: an update is dropped when the channel is full.
package tasks
