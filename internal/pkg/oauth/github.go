package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIBase = "https://api.github.com"

type GithubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
}

// DisplayName 优先使用 GitHub 上的名字，没有则用登录名
func (u *GithubUser) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Login
}

type GithubOAuth struct {
	config  *oauth2.Config
	apiBase string
}

func NewGithubOAuth(clientID, clientSecret, redirectURI string) *GithubOAuth {
	return NewGithubOAuthWithEndpoint(clientID, clientSecret, redirectURI, github.Endpoint, githubAPIBase)
}

// NewGithubOAuthWithEndpoint 自定义授权端点和 API 地址
func NewGithubOAuthWithEndpoint(clientID, clientSecret, redirectURI string, endpoint oauth2.Endpoint, apiBase string) *GithubOAuth {
	return &GithubOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"user:email"},
			Endpoint:     endpoint,
		},
		apiBase: strings.TrimRight(apiBase, "/"),
	}
}

// GetAuthURL 获取 GitHub 授权 URL
func (g *GithubOAuth) GetAuthURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// FetchUser 用授权码换取 token 并获取用户信息
func (g *GithubOAuth) FetchUser(ctx context.Context, code string) (*GithubUser, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return g.GetUser(ctx, token)
}

// GetUser 获取 GitHub 用户信息
func (g *GithubOAuth) GetUser(ctx context.Context, token *oauth2.Token) (*GithubUser, error) {
	client := g.config.Client(ctx, token)

	resp, err := client.Get(g.apiBase + "/user")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github api error: %s", string(body))
	}

	var user GithubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	// 公开资料里没有邮箱时取主邮箱
	if user.Email == "" {
		email, err := g.getPrimaryEmail(client)
		if err == nil {
			user.Email = email
		}
	}

	return &user, nil
}

func (g *GithubOAuth) getPrimaryEmail(client *http.Client) (string, error) {
	resp, err := client.Get(g.apiBase + "/user/emails")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}
