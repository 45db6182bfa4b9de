package models

import "github.com/desertthunder/acs/internal/shared"

var contentTypeLabels = map[string]string{
	string(BlogPost):           "Blog Post",
	string(ProductDescription): "Product Description",
	string(SocialMediaCaption): "Social Media Caption",
	string(Article):            "Article",
	string(OtherContent):       "Other",
	"blog_outline":             "Blog Outline",
	"social_caption":           "Social Caption",
}

var statusLabels = map[string]string{
	string(ThreadActive):      "Active",
	string(ThreadArchived):    "Archived",
	string(ThreadDeleted):     "Deleted",
	string(ContentCompleted):  "Completed",
	string(ContentPending):    "Pending",
	string(ContentFailed):     "Failed",
	string(ContentProcessing): "Processing",
}

// ContentTypeLabel returns the display label for a content type, or the raw value when unknown.
func ContentTypeLabel(t string) string {
	if label, ok := contentTypeLabels[t]; ok {
		return label
	}
	return t
}

// StatusLabel returns the display label for a thread or content status.
//
// Unknown statuses are title-cased.
func StatusLabel(s string) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return shared.TitleCase(s)
}
