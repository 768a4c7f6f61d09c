package console

import (
	"context"
	"iter"

	"mmunblock/internal/logging"
)

// DirectoryPage is one fetched page of the member directory. Err is set, and
// HTML empty, when the fetch failed.
type DirectoryPage struct {
	Key     string
	URL     string
	HTML    []byte
	Charset string
	Err     error
}

// FetchDirectory fetches the directory page for one index key. Each key is
// independently fetchable, so a crawl can be restarted from any key.
func (s *Session) FetchDirectory(ctx context.Context, key string) DirectoryPage {
	page := DirectoryPage{Key: key, URL: s.DirectoryURL(key)}
	resp, err := s.Get(ctx, page.URL)
	if err != nil {
		page.Err = err
		logging.WarnWithContext(s.logger, "directory page fetch failed", "directory_fetch_failed",
			logging.String(logging.FieldIndexKey, key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check console reachability; the key can be retried with --letter"),
			logging.String(logging.FieldImpact, "members under this key were not processed"),
		)
		return page
	}
	page.URL = resp.URL
	page.HTML = resp.Body
	page.Charset = resp.Charset
	return page
}

// Pages yields one directory page per key in caller order. A failed fetch
// yields a page with Err set and the crawl continues. Iteration stops before
// the next key once ctx is done.
func (s *Session) Pages(ctx context.Context, keys []string) iter.Seq[DirectoryPage] {
	return func(yield func(DirectoryPage) bool) {
		for _, key := range keys {
			if ctx.Err() != nil {
				return
			}
			if !yield(s.FetchDirectory(ctx, key)) {
				return
			}
		}
	}
}
