package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/alpakasoelde/dashboard-api/internal/application/service"
)

const (
	// AlpakaImagesPath serves signed image links below the API group
	AlpakaImagesPath = "/alpaka-images"
	// AlpakaImagesURL is the path signed image links point to
	AlpakaImagesURL = "/api" + AlpakaImagesPath

	detailMissingEvent = "Ein Ereignis muss angegeben werden."
	detailFormTooLarge = "Image file exceeds the maximum allowed size of 15MB."

	// maxAlpakaFormBytes leaves room for the text fields next to a full-size image
	maxAlpakaFormBytes = service.MaxImageBytes + 1<<20
)

// AddEventRequest is the body of POST /api/events
type AddEventRequest struct {
	EventType *string  `json:"eventType"`
	AlpakaIDs []string `json:"alpakaIds"`
	EventDate *string  `json:"eventDate"`
	Cost      *float64 `json:"cost"`
	Comment   *string  `json:"comment"`
}

// alpakaForm is the parsed add or update form
type alpakaForm struct {
	name      string
	birthDate string
	image     *service.ImageUpload
}

// ListAlpakas handles GET /api/alpakas
func (h *Handlers) ListAlpakas(c *gin.Context) {
	alpakas, err := h.alpakaService.ListAlpakas(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, alpakas)
}

// GetAlpaka handles GET /api/alpakas/:id
func (h *Handlers) GetAlpaka(c *gin.Context) {
	alpaka, err := h.alpakaService.GetAlpaka(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, alpaka)
}

// AddAlpaka handles POST /api/alpakas with a multipart form
func (h *Handlers) AddAlpaka(c *gin.Context) {
	form, ok := h.readAlpakaForm(c)
	if !ok {
		return
	}

	result, err := h.alpakaService.AddAlpaka(c.Request.Context(), service.AddAlpakaCommand{
		Name:      form.name,
		BirthDate: form.birthDate,
		Image:     form.image,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", service.AlpakaAddedLocation)
	c.JSON(http.StatusSeeOther, result)
}

// UpdateAlpaka handles PUT /api/alpakas/:id with a multipart form
func (h *Handlers) UpdateAlpaka(c *gin.Context) {
	form, ok := h.readAlpakaForm(c)
	if !ok {
		return
	}

	result, err := h.alpakaService.UpdateAlpaka(c.Request.Context(), service.UpdateAlpakaCommand{
		ID:        c.Param("id"),
		Name:      form.name,
		BirthDate: form.birthDate,
		Image:     form.image,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AlpakaImage handles GET /api/alpaka-images/:name?token=...
func (h *Handlers) AlpakaImage(c *gin.Context) {
	img, err := h.alpakaService.OpenImage(c.Request.Context(), c.Param("name"), c.Query("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, http.DetectContentType(img.Content), img.Content)
}

// ListEvents handles GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.eventService.ListEvents(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// AddEvent handles POST /api/events
func (h *Handlers) AddEvent(c *gin.Context) {
	var req AddEventRequest
	present, ok := h.bindJSON(c, &req)
	if !ok {
		return
	}
	if !present {
		writeProblem(c, http.StatusBadRequest, detailMissingEvent)
		return
	}

	result, err := h.eventService.AddEvent(c.Request.Context(), service.AddEventCommand{
		EventType: deref(req.EventType),
		AlpakaIDs: req.AlpakaIDs,
		EventDate: deref(req.EventDate),
		Cost:      req.Cost,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// readAlpakaForm parses the multipart form. The first non-empty file of any
// field is the picture. It writes the problem itself and reports false on failure.
func (h *Handlers) readAlpakaForm(c *gin.Context) (*alpakaForm, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAlpakaFormBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(c, http.StatusRequestEntityTooLarge, detailFormTooLarge)
			return nil, false
		}
		h.logger.Info("Invalid alpaka form", "path", c.FullPath(), "error", err.Error())
		writeProblem(c, http.StatusBadRequest, detailMalformedBody)
		return nil, false
	}

	parsed := &alpakaForm{
		name:      firstValue(form.Value["name"]),
		birthDate: firstValue(form.Value["geburtsdatum"]),
	}

	header := firstFile(form.File)
	if header == nil {
		return parsed, true
	}

	content, err := readUpload(header)
	if err != nil {
		h.logger.Error("Failed to read uploaded image", "file", header.Filename, "error", err)
		writeProblem(c, http.StatusBadRequest, detailMalformedBody)
		return nil, false
	}
	parsed.image = &service.ImageUpload{FileName: header.Filename, Content: content}
	return parsed, true
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// firstFile picks the first non-empty upload, fields in name order
func firstFile(files map[string][]*multipart.FileHeader) *multipart.FileHeader {
	fields := make([]string, 0, len(files))
	for field := range files {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, header := range files[field] {
			if header.Size > 0 {
				return header
			}
		}
	}
	return nil
}

// readUpload reads at most one byte past the image limit so oversize
// pictures are still reported as such
func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, service.MaxImageBytes+1))
}
