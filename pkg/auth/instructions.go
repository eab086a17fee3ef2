package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAppSetupGuide explains how to create the script app whose client id
// and secret the password grant needs.
func ShowAppSetupGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "REDDIT SCRIPT APP SETUP")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "socialcrawler logs in with the password grant of a \"script\" app.")
	fmt.Fprintln(w, "You need four values: client id, client secret, username, password.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 1: Create the app")
	fmt.Fprintln(w, "   - Log in and open https://www.reddit.com/prefs/apps")
	fmt.Fprintln(w, "   - Click 'create another app...'")
	fmt.Fprintln(w, "   - Pick the 'script' type")
	fmt.Fprintln(w, "   - Any redirect uri works, e.g. http://localhost:8080")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 2: Copy the credentials")
	fmt.Fprintln(w, "   - client id: the short string under the app name")
	fmt.Fprintln(w, "   - client secret: the 'secret' field")
	fmt.Fprintln(w, "   - the account that owns the app must be listed as a developer")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 3: Store them")
	fmt.Fprintln(w, "   socialcrawler auth login")
	fmt.Fprintln(w, "   or export REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET,")
	fmt.Fprintln(w, "   REDDIT_USERNAME and REDDIT_PASSWORD")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "NOTES:")
	fmt.Fprintln(w, "   - Accounts with two-factor auth cannot use the password grant")
	fmt.Fprintln(w, "   - Set a descriptive user agent, e.g. 'socialcrawler/1.0 by u/you'")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
