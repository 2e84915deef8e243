package api

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"

	"github.com/forscht/relock/internal/bench"
	dp "github.com/forscht/relock/internal/dataprovider"
)

func CreateRunHandler(defaults bench.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg := defaults
		cfg.Stack = slices.Clone(defaults.Stack)
		cfg.Keys = slices.Clone(defaults.Keys)

		if len(c.Body()) > 0 {
			if err := c.BodyParser(&cfg); err != nil {
				return fiber.NewError(StatusBadRequest, ErrBadRequest)
			}
		}

		if err := cfg.Validate(); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}
		if cfg.Workers*cfg.Ops > MaxRunOps {
			return fiber.NewError(StatusBadRequest, ErrRunTooLarge)
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), c.Locals("runtimeout").(time.Duration))
		defer cancel()

		report, err := bench.Run(ctx, cfg)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fiber.NewError(StatusRequestTimeout, ErrRunTimeout)
			}
			return err
		}
		if err = dp.Save(report); err != nil {
			return err
		}
		return c.Status(StatusCreated).
			JSON(Response{Message: "run completed", Data: report})
	}
}

func GetReportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := Page{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
		if err := validate.Struct(page); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}

		reports, err := dp.List(page.Limit, page.Offset)
		if err != nil {
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "reports retrieved", Data: reports})
	}
}

func GetReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := snowflake.ParseString(c.Params("id"))
		if err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadReportID)
		}
		report, err := dp.Get(id)
		if err != nil {
			if errors.Is(err, dp.ErrNotExist) {
				return fiber.NewError(StatusNotFound, ErrReportNotFound)
			}
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "report retrieved", Data: report})
	}
}

func DelReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := snowflake.ParseString(c.Params("id"))
		if err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadReportID)
		}
		if err = dp.Delete(id); err != nil {
			if errors.Is(err, dp.ErrNotExist) {
				return fiber.NewError(StatusNotFound, ErrReportNotFound)
			}
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "report deleted"})
	}
}
