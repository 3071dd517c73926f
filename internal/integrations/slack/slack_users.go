package slackbot

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

const userCacheTTL = 5 * time.Minute

// UserLister is the part of *slack.Client used to resolve manager names.
type UserLister interface {
	GetUsers(options ...slack.GetUsersOption) ([]slack.User, error)
}

type userCache struct {
	sync.Mutex
	users     []slack.User
	fetchedAt time.Time
	now       func() time.Time
}

func (c *userCache) get(api UserLister) ([]slack.User, error) {
	c.Lock()
	defer c.Unlock()

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if c.users != nil && now().Sub(c.fetchedAt) < userCacheTTL {
		return c.users, nil
	}

	users, err := api.GetUsers()
	if err != nil {
		return nil, err
	}
	c.users = users
	c.fetchedAt = now()
	return users, nil
}

// resolveUserIDs splits identifiers into Slack IDs and names, looks the names
// up by username, real name or display name, and returns the IDs it found
// plus the names it could not resolve.
func (c *userCache) resolveUserIDs(api UserLister, identifiers []string) ([]string, []string, error) {
	var ids []string
	var names []string

	for _, raw := range identifiers {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if isLikelySlackID(val) {
			ids = append(ids, val)
		} else {
			names = append(names, strings.TrimPrefix(val, "@"))
		}
	}

	if len(names) == 0 {
		return uniqueStrings(ids), nil, nil
	}

	users, err := c.get(api)
	if err != nil {
		log.Printf("resolve users: get users error: %v", err)
		return uniqueStrings(ids), names, err
	}

	nameToID := make(map[string]string)
	for _, user := range users {
		addName := func(n string) {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				return
			}
			if _, exists := nameToID[n]; !exists {
				nameToID[n] = user.ID
			}
		}
		addName(user.Name)
		addName(user.RealName)
		addName(user.Profile.DisplayName)
	}

	var unresolved []string
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if id, ok := nameToID[key]; ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}

	log.Printf("resolve users: ids=%d unresolved=%d", len(ids), len(unresolved))
	return uniqueStrings(ids), unresolved, nil
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func uniqueStrings(vals []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
