package echoweb_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/user"
	"github.com/trezcool/zenacademy/tests"
)

func TestLearnViews_Learn(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	basics := testutil.CreateModule(t, app.Backend, "Basics")
	advanced := testutil.CreateModule(t, app.Backend, "Advanced")
	intro := testutil.CreateChapter(t, app.Backend, basics.ID, "Intro", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", course.StatusLive)
	setup := testutil.CreateChapter(t, app.Backend, basics.ID, "Setup", "https://youtu.be/abcdefghijk", course.StatusLive)
	testutil.CreateChapter(t, app.Backend, basics.ID, "Wip", "https://youtu.be/zzzzzzzzzzz", course.StatusDraft)
	testutil.CreateChapter(t, app.Backend, advanced.ID, "Broken", "https://youtu.be/short", course.StatusLive)
	zen := testutil.CreateModule(t, app.Backend, "Zen")

	tests := []struct {
		name       string
		query      string
		wantBody   []string
		unwantBody []string
	}{
		{
			name:       "defaults to the first module by title and its first chapter",
			query:      "",
			wantBody:   []string{"Advanced", "Basics", "Broken", "video link is invalid"},
			unwantBody: []string{"Intro", "Setup"},
		},
		{
			name:       "selected module, first chapter",
			query:      fmt.Sprintf("?module=%d", basics.ID),
			wantBody:   []string{"Intro", "Setup", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
			unwantBody: []string{"Wip", "Broken"},
		},
		{
			name:     "selected chapter",
			query:    fmt.Sprintf("?module=%d&chapter=%d", basics.ID, setup.ID),
			wantBody: []string{"https://www.youtube.com/embed/abcdefghijk"},
		},
		{
			name:       "chapter of another module is not selected",
			query:      fmt.Sprintf("?module=%d&chapter=%d", advanced.ID, intro.ID),
			wantBody:   []string{"Broken", "Select a chapter to start learning"},
			unwantBody: []string{"youtube.com/embed"},
		},
		{
			name:       "module without live chapters",
			query:      fmt.Sprintf("?module=%d", zen.ID),
			wantBody:   []string{"No chapters yet", "Select a chapter to start learning"},
			unwantBody: []string{"youtube.com/embed"},
		},
		{
			name:     "unknown module",
			query:    "?module=999",
			wantBody: []string{"Select a chapter to start learning"},
		},
		{
			name:     "garbage ids",
			query:    "?module=lol&chapter=lmao",
			wantBody: []string{"Broken"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := app.get(t, c, "/learn"+tt.query)
			assert.Equal(t, http.StatusOK, res.code)
			for _, want := range tt.wantBody {
				assert.Contains(t, res.body, want)
			}
			for _, unwant := range tt.unwantBody {
				assert.NotContains(t, res.body, unwant)
			}
		})
	}
}

func TestLearnViews_NoModules(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	res := app.get(t, c, "/learn")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "No modules yet")
	assert.Contains(t, res.body, "Select a chapter to start learning")
}
