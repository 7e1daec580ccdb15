package controller

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"

	"github.com/lancerdesk/crm/model"
)

var formDecoder = form.NewDecoder()

// documentUploadForm carries the multipart fields accompanying the file.
type documentUploadForm struct {
	ProjectID    uint   `form:"project_id"`
	DocumentType string `form:"document_type"`
}

const maxDocumentSize = 16 << 20 // 16 MiB

func (ctrl *controller) apiDocumentUpload(c echo.Context) error {
	if err := c.Request().ParseMultipartForm(maxDocumentSize); err != nil {
		return ErrInvalid(err, "Malformed multipart request")
	}
	var meta documentUploadForm
	if err := formDecoder.Decode(&meta, c.Request().MultipartForm.Value); err != nil {
		return ErrInvalid(err, "Malformed form fields")
	}
	if meta.ProjectID == 0 {
		return ErrInvalid(echo.ErrBadRequest, "project_id is required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return ErrInvalid(err, "A file part named 'file' is required")
	}
	if fh.Size > maxDocumentSize {
		return ErrInvalid(echo.ErrBadRequest, "File exceeds the 16 MiB limit")
	}
	if !model.AllowedDocumentName(fh.Filename) {
		return ErrInvalid(echo.ErrBadRequest, "File type not allowed")
	}

	src, err := fh.Open()
	if err != nil {
		return ErrInternal(err)
	}
	defer src.Close()
	contents, err := io.ReadAll(src)
	if err != nil {
		return ErrInternal(err)
	}

	doc, err := ctrl.model.CreateDocument(meta.ProjectID, currentUserID(c),
		fh.Filename, meta.DocumentType, contents)
	if err != nil {
		return err
	}
	requestLogger(c).Info("document uploaded",
		"document_id", doc.ID, "name", doc.Name, "size", doc.Size)
	return respond(c, http.StatusCreated, toAPIDocument(doc))
}

func (ctrl *controller) apiDocumentList(c echo.Context) error {
	q := model.DocumentListQuery{DocumentType: c.QueryParam("document_type")}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ErrInvalid(err, "project_id must be numeric")
		}
		q.ProjectID = uint(id)
	}
	ds, err := ctrl.model.ListDocuments(currentUserID(c), q)
	if err != nil {
		return err
	}
	out := make([]APIDocument, len(ds))
	for i := range ds {
		out[i] = toAPIDocument(&ds[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiDocumentGet(c echo.Context) error {
	doc, err := ctrl.model.LoadDocument(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIDocument(doc))
}

func (ctrl *controller) apiDocumentDownload(c echo.Context) error {
	doc, err := ctrl.model.LoadDocument(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return c.Attachment(ctrl.model.DocumentPath(doc), doc.Name)
}

func (ctrl *controller) apiDocumentDelete(c echo.Context) error {
	if err := ctrl.model.DeleteDocument(c.Param("id"), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
