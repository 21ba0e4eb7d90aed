package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tg-coursesync/internal/courses"
	"tg-coursesync/internal/models"
)

type courseHandler struct {
	service *courses.Service
}

type courseResponse struct {
	ID        string `json:"id"`
	MoodleID  *int64 `json:"moodle_id,omitempty"`
	FullName  string `json:"full_name"`
	ShortName string `json:"short_name"`
	Year      *int   `json:"year,omitempty"`
	Type      string `json:"type"`
	Degree    string `json:"degree"`
}

func toCourseResponse(course *models.Course) courseResponse {
	return courseResponse{
		ID:        course.ID,
		MoodleID:  course.MoodleID,
		FullName:  course.FullName,
		ShortName: course.ShortName,
		Year:      course.Year,
		Type:      string(course.Type),
		Degree:    string(course.Degree),
	}
}

func (h *courseHandler) list(c *gin.Context) {
	var result []*models.Course
	err := h.service.ForEach(func(course *models.Course) error {
		clone := *course
		result = append(result, &clone)
		return nil
	})
	if err != nil {
		renderError(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "text/csv") {
		writeCoursesCSV(c, result)
		return
	}

	responses := make([]courseResponse, 0, len(result))
	for _, course := range result {
		responses = append(responses, toCourseResponse(course))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *courseHandler) get(c *gin.Context) {
	course, err := h.service.Get(strings.ToUpper(c.Param("id")))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourseResponse(course))
}

func (h *courseHandler) remove(c *gin.Context) {
	if err := h.service.Delete(strings.ToUpper(c.Param("id"))); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

var courseCSVHeader = []string{"id", "moodle_id", "full_name", "short_name", "year", "type", "degree"}

func writeCoursesCSV(c *gin.Context, list []*models.Course) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="courses.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(courseCSVHeader)
	for _, course := range list {
		moodleID := ""
		if course.MoodleID != nil {
			moodleID = strconv.FormatInt(*course.MoodleID, 10)
		}
		year := ""
		if course.Year != nil {
			year = strconv.Itoa(*course.Year)
		}
		_ = w.Write([]string{
			course.ID,
			moodleID,
			course.FullName,
			course.ShortName,
			year,
			string(course.Type),
			string(course.Degree),
		})
	}
	w.Flush()
}
