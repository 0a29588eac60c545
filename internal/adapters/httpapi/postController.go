package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	postEntity "newsdesk/internal/core/post"
	postapp "newsdesk/internal/core/post/service"
	postPort "newsdesk/internal/ports/post"

	"github.com/gin-gonic/gin"
)

type PostController struct{ pc PostUseCase }

func NewPostController(pc PostUseCase) *PostController { return &PostController{pc: pc} }

// IngestPost دریافت مقاله از سرویس‌های بیرونی
func (ctl *PostController) IngestPost(c *gin.Context) {
	var req struct {
		Title      string `json:"title"`
		Text       string `json:"text" binding:"required"`
		CoverImage string `json:"cover_image"`
		ClientKey  string `json:"client_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	res, err := ctl.pc.CreatePost(c.Request.Context(), postPort.CreatePostInput{
		Title:      req.Title,
		Text:       req.Text,
		CoverImage: req.CoverImage,
		ClientKey:  req.ClientKey,
	})
	if err != nil {
		writePostError(c, err, "could not create post")
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (ctl *PostController) ListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	status := c.Query("status")
	if status != "" && !postEntity.Status(status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	res, err := ctl.pc.ListPosts(c.Request.Context(), status, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list posts"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *PostController) GetPost(c *gin.Context) {
	res, err := ctl.pc.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writePostError(c, err, "could not load post")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *PostController) UpdatePost(c *gin.Context) {
	var req struct {
		Title      *string `json:"title"`
		Text       *string `json:"text"`
		CoverImage *string `json:"cover_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	res, err := ctl.pc.UpdatePost(c.Request.Context(), c.Param("id"), postPort.UpdatePostInput{
		Title:      req.Title,
		Text:       req.Text,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		writePostError(c, err, "could not update post")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *PostController) PublishPost(c *gin.Context) {
	res, err := ctl.pc.PublishPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writePostError(c, err, "could not publish post")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *PostController) ArchivePost(c *gin.Context) {
	res, err := ctl.pc.ArchivePost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writePostError(c, err, "could not archive post")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *PostController) DeletePost(c *gin.Context) {
	if err := ctl.pc.DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		writePostError(c, err, "could not delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

func writePostError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, postEntity.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, postEntity.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, postapp.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
