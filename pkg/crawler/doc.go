// Package crawler runs the ingestion pass.
//
// For each post from the source, in order:
//
//   - posts without a media URL are dropped when media_only is set
//   - the raw record is written to json/<subreddit>/<id>.json
//   - when download_media is set, the media is fetched into
//     media/<subreddit>/<id><ext> unless that key already exists
//   - a ledger entry pointing at both keys is recorded
//
// The first failure ends the run. A media fetch failure can instead be
// logged and skipped with media.continue_on_error.
package crawler
