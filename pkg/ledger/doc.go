// Package ledger records processed posts.
//
// Two backends share the column set in Columns. The CSV backend appends a
// row per call and writes its header only when it creates the file. The
// SQLite backend keeps a reddit_posts table keyed by post_id and upserts.
package ledger
