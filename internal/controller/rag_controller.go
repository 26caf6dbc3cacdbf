package controller

import (
	"errors"
	"fmt"
	"path/filepath"

	"doc-qa-be/internal/dto"
	"doc-qa-be/internal/pkg/serverutils"
	"doc-qa-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
	ShowJob(ctx *fiber.Ctx) error
	CancelJob(ctx *fiber.Ctx) error
}

type ragController struct {
	jobService service.IJobService
	uploadDir  string
}

func NewRagController(jobService service.IJobService, uploadDir string) IRagController {
	return &ragController{
		jobService: jobService,
		uploadDir:  uploadDir,
	}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag/v1")
	h.Post("ingest", c.Ingest)
	h.Post("upload", c.Upload)
	h.Post("query", c.Query)
	h.Get("jobs/:id", c.ShowJob)
	h.Delete("jobs/:id", c.CancelJob)
}

func (c *ragController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.jobService.SubmitIngestJob(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).
		JSON(serverutils.SuccessResponse("Success submit ingest job", res))
}

func (c *ragController) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file upload")
	}

	// Prefix with a fresh id so same-named uploads never clobber each other
	savedPath := filepath.Join(c.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), file.Filename))
	if err := ctx.SaveFile(file, savedPath); err != nil {
		return err
	}

	req := dto.IngestDocumentRequest{
		Path:     savedPath,
		SourceId: file.Filename,
	}

	res, err := c.jobService.SubmitIngestJob(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).
		JSON(serverutils.SuccessResponse("Success upload document", res))
}

func (c *ragController) Query(ctx *fiber.Ctx) error {
	var req dto.AskQuestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.jobService.SubmitQueryJob(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).
		JSON(serverutils.SuccessResponse("Success submit query job", res))
}

func (c *ragController) ShowJob(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}

	res, err := c.jobService.GetJob(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "job not found")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show job", res))
}

func (c *ragController) CancelJob(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}

	res, err := c.jobService.CancelJob(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "job not found")
		}
		if errors.Is(err, service.ErrJobAlreadyFinished) {
			return fiber.NewError(fiber.StatusConflict, "job already finished")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success request job cancellation", res))
}
