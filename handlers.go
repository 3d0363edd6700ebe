package chainpost

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// handleListPosts serves the post listing, optionally filtered by category.
func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return a.storageError(c, err)
	}
	if posts == nil {
		posts = []Post{}
	}
	return c.JSON(http.StatusOK, posts)
}

// postResponse pairs a post's metadata with its rendered body.
type postResponse struct {
	Post     Post     `json:"post"`
	Document Document `json:"document"`
}

// handleGetPost serves a single post with its rendered document.
func (a *App) handleGetPost(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Cache.GetPost(c.Request().Context(), slug)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Post not found"})
	}
	if err != nil {
		return a.storageError(c, err)
	}
	doc, err := a.Renderer.Render(post.ContentPath)
	if errors.Is(err, ErrNotFound) {
		// Remote metadata can reference a body that was never materialized
		// on this deployment; surface it as missing rather than broken.
		c.Logger().Warnf("post %q metadata references missing body %s", slug, post.ContentPath)
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Post not found"})
	}
	if err != nil {
		return a.storageError(c, err)
	}
	return c.JSON(http.StatusOK, postResponse{Post: post, Document: doc})
}

// handleCreatePost accepts a new post as JSON or multipart/form-data (the
// latter when an image is attached) and runs the publication pipeline.
func (a *App) handleCreatePost(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"message": "Too many requests. Try again later."})
	}

	var in PostInput
	var img *ImageUpload
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		var err error
		in, img, err = readMultipartInput(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Malformed form data"})
		}
	} else {
		if err := c.Bind(&in); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Malformed request body"})
		}
	}

	post, err := a.Publisher.CreatePost(c.Request().Context(), in, img)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": verr.Error()})
		case errors.Is(err, ErrInvalidSlug):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid slug"})
		case errors.Is(err, ErrDuplicateSlug):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Slug already exists"})
		default:
			return a.storageError(c, err)
		}
	}

	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, echo.Map{"slug": post.Slug})
}

// readMultipartInput pulls the post fields and the optional image out of a
// multipart form. Field values are trimmed the way browsers tend to pad them.
func readMultipartInput(c echo.Context) (PostInput, *ImageUpload, error) {
	in := PostInput{
		Title:    strings.TrimSpace(c.FormValue("title")),
		Slug:     strings.TrimSpace(c.FormValue("slug")),
		Excerpt:  strings.TrimSpace(c.FormValue("excerpt")),
		Author:   strings.TrimSpace(c.FormValue("author")),
		Category: strings.TrimSpace(c.FormValue("category")),
		Content:  strings.TrimSpace(c.FormValue("content")),
		Featured: c.FormValue("featured") == "true",
	}

	file, err := c.FormFile("image")
	if err != nil {
		// No image part is fine; the image is optional.
		return in, nil, nil
	}
	src, err := file.Open()
	if err != nil {
		return in, nil, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return in, nil, err
	}
	return in, &ImageUpload{Filename: file.Filename, Data: data}, nil
}

// subscribeRequest is the newsletter signup payload.
type subscribeRequest struct {
	Email string `json:"email" form:"email"`
	Name  string `json:"name" form:"name"`
}

// handleSubscribe appends a newsletter signup.
func (a *App) handleSubscribe(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"message": "Too many requests. Try again later."})
	}
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Malformed request body"})
	}
	_, err := a.Subscribers.Add(req.Email, req.Name)
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid email"})
	case errors.Is(err, ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{"message": "Email already subscribed"})
	case err != nil:
		return a.storageError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true})
}

// storageError logs the full failure server-side and answers with detail
// suppressed in production deployments.
func (a *App) storageError(c echo.Context, err error) error {
	c.Logger().Errorf("storage error: %v", err)
	msg := "Server error"
	if !a.Config.Production() {
		msg = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": msg})
}
