// Package models defines domain entities for the content studio client.
//
// The package contains two categories of types:
//
// 1. Wire records: server-owned data the client holds read-only copies of
//   - [Thread] : Conversation container with its latest [Content]
//   - [ThreadDetails] : Thread with its full content history
//   - [Content] : Generated artifact with lifecycle [ContentStatus] and [Sentiment]
//   - [ThreadsPage], [Summary] : Listing and dashboard responses
//
// 2. Persistent entities: locally cached records implementing [Model]
//   - [User] : Profile of the signed-in account
//
// Display labels for content types and statuses live in labels.go.
package models
