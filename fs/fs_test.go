package appfs

import (
	"io/fs"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{name: "migration", file: path.Join(MigrationsDir, "00001_init.sql")},
		{name: "web layout", file: path.Join(WebTemplatesDir, "_layout.gohtml")},
		{name: "web page", file: path.Join(WebTemplatesDir, "learn.gohtml")},
		{name: "email html base", file: path.Join(EmailTemplatesDir, "_base.gohtml")},
		{name: "email text base", file: path.Join(EmailTemplatesDir, "_base.txt")},
		{name: "email template", file: path.Join(EmailTemplatesDir, "welcome.gohtml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := fs.Stat(FS, tt.file)
			require.NoError(t, err)
			assert.NotZero(t, info.Size())
		})
	}
}

func TestFS_layoutsMatch(t *testing.T) {
	for _, pattern := range []string{
		path.Join(WebTemplatesDir, "_*.gohtml"),
		path.Join(EmailTemplatesDir, "_*.gohtml"),
		path.Join(EmailTemplatesDir, "_*.txt"),
	} {
		matches, err := fs.Glob(FS, pattern)
		require.NoError(t, err)
		assert.NotEmpty(t, matches, pattern)
	}
}
