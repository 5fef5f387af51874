package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_ReferencesFileAndPreset(t *testing.T) {
	cmd, err := Composer{}.Compose("out/cleaned_urls.txt", 3)
	require.NoError(t, err)

	s := cmd.String()
	assert.Contains(t, s, "out/cleaned_urls.txt")
	assert.Contains(t, s, "-m out/cleaned_urls.txt")
	assert.Contains(t, s, "--batch --level 5 --risk 3 --dbs")
	assert.Equal(t, "sqlmap -m out/cleaned_urls.txt --batch --level 5 --risk 3 --dbs", s)
}

func TestCompose_EmptyTargets(t *testing.T) {
	cmd, err := Composer{}.Compose("out/cleaned_urls.txt", 0)
	assert.ErrorIs(t, err, ErrNoTargets)
	assert.Empty(t, cmd.Binary)
}

func TestCompose_ProxyAndExtras(t *testing.T) {
	c := Composer{
		Binary:    "/opt/sqlmap/sqlmap.py",
		ProxyURL:  "socks5://127.0.0.1:9050",
		ExtraArgs: []string{"--threads", "4"},
	}
	cmd, err := c.Compose("my dir/cleaned_urls.txt", 1)
	require.NoError(t, err)

	assert.Equal(t, "/opt/sqlmap/sqlmap.py", cmd.Binary)
	assert.Equal(t, []string{
		"-m", "my dir/cleaned_urls.txt",
		"--batch", "--level", "5", "--risk", "3", "--dbs",
		"--proxy", "socks5://127.0.0.1:9050",
		"--threads", "4",
	}, cmd.Args)
	assert.Contains(t, cmd.String(), "-m 'my dir/cleaned_urls.txt'")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain", shellQuote("plain"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestAlways(t *testing.T) {
	ok, err := Always(true).Confirm("x.com", Command{}, 1, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Always(false).Confirm("x.com", Command{}, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
