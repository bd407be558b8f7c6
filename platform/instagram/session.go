package instagram

import (
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/adrg/xdg"
	"github.com/goccy/go-json"
)

var errNoSession = errors.New("no persisted instagram session found")

const sessionFileName = "vigil/instagram-session.json"

// authSession is the minimal persisted state needed to resume an Instagram
// web session without a fresh password login.
type authSession struct {
	Username  string `json:"username"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	CSRFToken string `json:"csrf_token"`
}

func persistAuthSession(sess *authSession) error {
	fPath, err := xdg.StateFile(sessionFileName)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(fPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	authBytes, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.Write(authBytes)
	return err
}

func loadAuthSession() (*authSession, error) {
	fPath, err := xdg.SearchStateFile(sessionFileName)
	if err != nil {
		return nil, errNoSession
	}

	fBytes, err := os.ReadFile(fPath)
	if err != nil {
		return nil, err
	}

	var sess authSession
	if err := json.Unmarshal(fBytes, &sess); err != nil {
		return nil, err
	}
	if sess.SessionID == "" {
		return nil, errNoSession
	}
	return &sess, nil
}

func wipeAuthSession() error {
	fPath, err := xdg.SearchStateFile(sessionFileName)
	if err != nil {
		return nil
	}
	return os.Remove(fPath)
}

// sessionCookies materializes the persisted session as cookies scoped to all
// instagram.com hosts, for seeding a fresh cookie jar.
func (s *authSession) sessionCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "sessionid", Value: s.SessionID, Domain: ".instagram.com", Path: "/", Secure: true},
		{Name: "csrftoken", Value: s.CSRFToken, Domain: ".instagram.com", Path: "/", Secure: true},
	}
}

func cookieValue(jar http.CookieJar, rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
