package judge

import "net/url"

// Cache key prefixes. Singular keys ("problem:", "submission:") never start with
// a plural prefix, so list invalidation leaves detail entries alone.
const (
	ProblemsPrefix    = "problems:"
	ProblemPrefix     = "problem:"
	SubmissionsPrefix = "submissions:"
	SubmissionPrefix  = "submission:"
	ProfileKey        = "profile"
)

func ProblemsKey(q ProblemQuery) string {
	return ProblemsPrefix + url.QueryEscape(q.Cursor) + ":" + url.QueryEscape(q.Filter)
}

func ProblemKey(slug string) string {
	return ProblemPrefix + url.QueryEscape(slug)
}

func SubmissionsKey(q SubmissionQuery) string {
	return SubmissionsPrefix + url.QueryEscape(q.ProblemSlug) + ":" + url.QueryEscape(q.Cursor)
}

func SubmissionKey(id string) string {
	return SubmissionPrefix + url.QueryEscape(id)
}
