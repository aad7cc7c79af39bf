package repo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	githubNoreplyDomain = "@users.noreply.github.com"
	gravatarURL         = "https://www.gravatar.com/avatar/%s?d=identicon&s=64"
)

// AvatarURL derives an avatar image URL from an email. A configured GitHub
// username or a GitHub noreply address maps to the GitHub avatar; anything
// else maps to Gravatar. Results are memoized.
func (s *Service) AvatarURL(email string) string {
	key := strings.ToLower(strings.TrimSpace(email))
	if url, found := s.avatars.Get(key); found {
		return url
	}

	url := s.deriveAvatarURL(key)
	s.avatars.Add(key, url)
	return url
}

func (s *Service) deriveAvatarURL(email string) string {
	s.mu.RLock()
	user, mapped := s.githubUsers[email]
	s.mu.RUnlock()
	if mapped {
		return githubAvatar(user)
	}

	if local, found := strings.CutSuffix(email, githubNoreplyDomain); found {
		// 12345+octocat@users.noreply.github.com
		if _, name, plus := strings.Cut(local, "+"); plus {
			local = name
		}
		if local != "" {
			return githubAvatar(local)
		}
	}

	sum := sha256.Sum256([]byte(email))
	return fmt.Sprintf(gravatarURL, hex.EncodeToString(sum[:]))
}

func githubAvatar(user string) string {
	return "https://github.com/" + user + ".png"
}

// SetGitHubUsers replaces the email to GitHub username mapping and clears
// memoized URLs that may depend on it.
func (s *Service) SetGitHubUsers(users map[string]string) {
	normalized := make(map[string]string, len(users))
	for email, user := range users {
		email = strings.ToLower(strings.TrimSpace(email))
		if user = strings.TrimSpace(user); email != "" && user != "" {
			normalized[email] = user
		}
	}

	s.mu.Lock()
	s.githubUsers = normalized
	s.mu.Unlock()

	s.avatars.Purge()
}
