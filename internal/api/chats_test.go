package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-coursesync/internal/chats"
	"tg-coursesync/internal/config"
	"tg-coursesync/internal/courses"
	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
)

type apiFixture struct {
	handler http.Handler
	chats   *chats.Service
	courses *storage.MemoryCourseStore
}

func newAPIFixture() *apiFixture {
	gin.SetMode(gin.TestMode)

	chatService := chats.NewService(storage.NewMemoryChatStore())
	courseStore := storage.NewMemoryCourseStore()
	courseService := courses.NewService(courseStore, nil)

	server := NewServer(config.ServerConfig{ListenAddr: ":0", Mode: gin.TestMode}, chatService, courseService)
	return &apiFixture{
		handler: server.Handler(),
		chats:   chatService,
		courses: courseStore,
	}
}

func (f *apiFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// TestCreateChat accepts a valid chat and returns it with id and status.
func TestCreateChat(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(http.MethodPut, "/api/chats",
		`{"title":"Databases","course":"db-201","type":"students","slow_mode":30}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "DB-201", resp.Course, "course id is normalized to upper case")
	assert.Equal(t, "creating", resp.Status)
	assert.Equal(t, 30, resp.SlowMode)
}

// TestCreateChatRejectsBadSlowMode returns 422 for delays outside the
// supported levels.
func TestCreateChatRejectsBadSlowMode(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(http.MethodPut, "/api/chats",
		`{"title":"X","course":"C","type":"students","slow_mode":15}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// TestCreateChatRejectsChannelSlowMode maps the channel rule onto 422.
func TestCreateChatRejectsChannelSlowMode(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(http.MethodPut, "/api/chats",
		`{"title":"News","course":"C","type":"channel","slow_mode":10}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// TestUpdateChatTypeImmutable has no type field in the update shape at all;
// patching other fields flips the chat back to updating.
func TestUpdateChat(t *testing.T) {
	f := newAPIFixture()

	chat := &models.Chat{Title: "Old", Course: "C-1", Type: models.ChatTypeStudents}
	require.NoError(t, f.chats.Create(chat))

	rec := f.do(http.MethodPatch, "/api/chats/"+chat.ID.String(),
		`{"title":"New title","slow_mode":10}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "New title", resp.Title)
	assert.Equal(t, 10, resp.SlowMode)
	assert.Equal(t, "updating", resp.Status)
}

// TestUpdateDeletingChat returns 422 once the chat is marked for deletion.
func TestUpdateDeletingChat(t *testing.T) {
	f := newAPIFixture()

	chat := &models.Chat{Title: "Going away", Course: "C-1", Type: models.ChatTypeStudents}
	require.NoError(t, f.chats.Create(chat))
	require.NoError(t, f.chats.Delete(chat.ID, false))

	rec := f.do(http.MethodPatch, "/api/chats/"+chat.ID.String(), `{"title":"Nope"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// TestDeleteChat soft-deletes by default and 404s on unknown ids.
func TestDeleteChat(t *testing.T) {
	f := newAPIFixture()

	chat := &models.Chat{Title: "Doomed", Course: "C-1", Type: models.ChatTypeStudents}
	require.NoError(t, f.chats.Create(chat))

	rec := f.do(http.MethodDelete, "/api/chats/"+chat.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.chats.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatStatusDeleting, stored.Status)

	rec = f.do(http.MethodDelete, "/api/chats/00000000-0000-0000-0000-000000000001?forced=true", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestListChatsCSV exports the list as CSV when the client asks for it.
func TestListChatsCSV(t *testing.T) {
	f := newAPIFixture()

	require.NoError(t, f.chats.Create(&models.Chat{Title: "A", Course: "C-1", Type: models.ChatTypeStudents}))
	require.NoError(t, f.chats.Create(&models.Chat{Title: "B", Course: "C-2", Type: models.ChatTypeTA}))

	rec := f.do(http.MethodGet, "/api/chats", "", map[string]string{"Accept": "text/csv"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	assert.Equal(t, strings.Join(chatCSVHeader, ","), lines[0])
}

// TestListChatsFilterByCourse narrows the listing to one course.
func TestListChatsFilterByCourse(t *testing.T) {
	f := newAPIFixture()

	require.NoError(t, f.chats.Create(&models.Chat{Title: "A", Course: "C-1", Type: models.ChatTypeStudents}))
	require.NoError(t, f.chats.Create(&models.Chat{Title: "B", Course: "C-2", Type: models.ChatTypeStudents}))

	rec := f.do(http.MethodGet, "/api/chats?course=C-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "A", resp[0].Title)
}

// TestImportChatsCSV bulk-creates chats, tolerating a header row.
func TestImportChatsCSV(t *testing.T) {
	f := newAPIFixture()

	body := strings.Join([]string{
		"title,course,type,description,slow_mode,all_reactions",
		"Databases,db-201,students,Main group,30,true",
		"Databases,db-201,ta,,0,false",
	}, "\n")

	rec := f.do(http.MethodPost, "/api/chats/import", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["imported"])

	var count int
	require.NoError(t, f.chats.Filter(storage.ChatFilter{Course: "DB-201"}, func(*models.Chat) error {
		count++
		return nil
	}))
	assert.Equal(t, 2, count)
}

// TestImportChatsCSVBadRow rejects rows with an unknown chat type.
func TestImportChatsCSVBadRow(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(http.MethodPost, "/api/chats/import", "Databases,db-201,broadcast", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// TestGetCourse reads a stored course and 404s on unknown ids.
func TestGetCourse(t *testing.T) {
	f := newAPIFixture()

	require.NoError(t, f.courses.Upsert(&models.Course{
		ID:       "OS-101",
		FullName: "Operating Systems",
		Type:     models.CourseTypeCore,
	}))

	rec := f.do(http.MethodGet, "/api/courses/os-101", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp courseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Operating Systems", resp.FullName)
	assert.Equal(t, "core", resp.Type)

	rec = f.do(http.MethodGet, "/api/courses/NOPE-1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
