package instagram

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		username string
		expected string
	}{
		{
			name:     "simple username",
			username: "testuser",
			expected: fmt.Sprintf("%s?username=testuser", ProfileEndpoint),
		},
		{
			name:     "username with underscore",
			username: "test_user",
			expected: fmt.Sprintf("%s?username=test_user", ProfileEndpoint),
		},
		{
			name:     "username with dots",
			username: "test.user",
			expected: fmt.Sprintf("%s?username=test.user", ProfileEndpoint),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetProfileURL(tt.username)
			assert.Equal(t, tt.expected, result)

			_, err := url.Parse(result)
			assert.NoError(t, err)
		})
	}
}

func TestGetMediaURL(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		after  string
	}{
		{name: "without cursor", userID: "123456"},
		{name: "with cursor", userID: "123456", after: "cursor123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := url.Parse(GetMediaURL(tt.userID, tt.after))
			assert.NoError(t, err)

			assert.Equal(t, MediaEndpoint, actual.Path)
			assert.Equal(t, MediaQueryHash, actual.Query().Get("query_hash"))

			vars := actual.Query().Get("variables")
			assert.Contains(t, vars, tt.userID)
			assert.Contains(t, vars, fmt.Sprintf(`"after":"%s"`, tt.after))
		})
	}
}

func TestGetMediaURLWithLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{name: "default limit when zero", limit: 0, expected: DefaultMediaLimit},
		{name: "negative limit uses default", limit: -5, expected: DefaultMediaLimit},
		{name: "custom limit within bounds", limit: 25, expected: 25},
		{name: "limit exceeds maximum", limit: 100, expected: MaxMediaLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(GetMediaURLWithLimit("123456", "", tt.limit))
			assert.NoError(t, err)

			vars := parsed.Query().Get("variables")
			assert.Contains(t, vars, fmt.Sprintf(`"first":%d`, tt.expected))
		})
	}
}

func TestAPIPaths(t *testing.T) {
	assert.Equal(t, "/api/v1/media/1_2/info/", GetMediaInfoURL("1_2"))
	assert.Equal(t, "/api/v1/media/1_2/likers/", GetMediaLikersURL("1_2"))
	assert.Equal(t, "/api/v1/users/42/info/", GetUserInfoURL("42"))
	assert.Equal(t, "/api/v1/friendships/create/42/", GetFollowURL("create", "42"))
	assert.Equal(t, "/api/v1/feed/tag/go%20lang/", GetTagFeedURL("go lang"))
	assert.Equal(t, "/rupload_igphoto/fb_uploader_1", GetUploadURL("fb_uploader_1"))

	friends, err := url.Parse(GetFriendshipsURL("42", "followers", "next"))
	assert.NoError(t, err)
	assert.Equal(t, "/api/v1/friendships/42/followers/", friends.Path)
	assert.Equal(t, "next", friends.Query().Get("max_id"))
	assert.Equal(t, "200", friends.Query().Get("count"))

	first, err := url.Parse(GetFriendshipsURL("42", "following", ""))
	assert.NoError(t, err)
	assert.False(t, first.Query().Has("max_id"))
}

func TestIsNumericID(t *testing.T) {
	assert.True(t, IsNumericID("1234567"))
	assert.False(t, IsNumericID("alice"))
	assert.False(t, IsNumericID("12a"))
	assert.False(t, IsNumericID(""))
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		expected bool
	}{
		{
			name:     "valid simple username",
			username: "testuser",
			expected: true,
		},
		{
			name:     "valid with underscore",
			username: "test_user",
			expected: true,
		},
		{
			name:     "valid with dot",
			username: "test.user",
			expected: true,
		},
		{
			name:     "valid with numbers",
			username: "user123",
			expected: true,
		},
		{
			name:     "valid uppercase",
			username: "TestUser",
			expected: true,
		},
		{
			name:     "empty username",
			username: "",
			expected: false,
		},
		{
			name:     "too long",
			username: "thisusernameiswaytoolongandexceedsthirtychars",
			expected: false,
		},
		{
			name:     "invalid with space",
			username: "test user",
			expected: false,
		},
		{
			name:     "invalid with hyphen",
			username: "test-user",
			expected: false,
		},
		{
			name:     "invalid with special char",
			username: "test@user",
			expected: false,
		},
		{
			name:     "invalid with emoji",
			username: "testğŸ˜€user",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidUsername(tt.username)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		expected string
	}{
		{
			name:     "clean username",
			username: "testuser",
			expected: "testuser",
		},
		{
			name:     "username with @ prefix",
			username: "@testuser",
			expected: "testuser",
		},
		{
			name:     "username with trailing slash",
			username: "testuser/",
			expected: "testuser",
		},
		{
			name:     "username with trailing space",
			username: "testuser ",
			expected: "testuser",
		},
		{
			name:     "username with multiple trailing chars",
			username: "testuser// ",
			expected: "testuser",
		},
		{
			name:     "username with @ and trailing slash",
			username: "@testuser/",
			expected: "testuser",
		},
		{
			name:     "empty username",
			username: "",
			expected: "",
		},
		{
			name:     "just @",
			username: "@",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeUsername(tt.username)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestURLConstruction(t *testing.T) {
	t.Run("base URL is HTTPS", func(t *testing.T) {
		assert.Contains(t, BaseURL, "https://")
		assert.Contains(t, BaseURL, "instagram.com")
	})

	t.Run("endpoints start with slash", func(t *testing.T) {
		for _, e := range []string{ProfileEndpoint, MediaEndpoint, LoginEndpoint, ActivityEndpoint,
			InboxEndpoint, BroadcastTextEndpoint, ConfigureEndpoint, ConfigureStoryEndpoint} {
			assert.Equal(t, "/", string(e[0]), e)
		}
	})

	t.Run("media limits are reasonable", func(t *testing.T) {
		assert.Greater(t, DefaultMediaLimit, 0)
		assert.LessOrEqual(t, DefaultMediaLimit, MaxMediaLimit)
		assert.LessOrEqual(t, MaxMediaLimit, 100)
	})
}

func BenchmarkIsValidUsername(b *testing.B) {
	username := "test_user.123"
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = IsValidUsername(username)
	}
}
