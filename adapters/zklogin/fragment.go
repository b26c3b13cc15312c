package zklogin

import (
	"net/url"
	"strings"

	"github.com/layer-3/dealguard/core"
)

// TokenFromFragment extracts id_token from a callback URL fragment such as
// "#id_token=...&authuser=0". A full URL is accepted as well.
func TokenFromFragment(fragment string) (string, error) {
	if i := strings.IndexByte(fragment, '#'); i >= 0 {
		fragment = fragment[i+1:]
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return "", core.ErrMissingIDToken
	}
	token := values.Get("id_token")
	if token == "" {
		return "", core.ErrMissingIDToken
	}
	return token, nil
}
