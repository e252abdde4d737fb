package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/user"
)

const defaultNotificationLimit = 100

type notificationApi struct {
	svc    *notification.Service
	usrSvc *user.Service
}

func registerNotificationAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := notificationApi{
		svc:    s.deps.NotificationSvc,
		usrSvc: s.deps.UserSvc,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.POST("/read", api.markAllRead)
	ng.POST("/:id/read", api.markRead)

	g.GET("/admin/notifications", api.queryAll, jwt, admin)
}

func (api *notificationApi) query(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	items, err := api.svc.QueryForStudent(rctx, p.UID, boolParam(ctx, "unread"))
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	unread, err := api.svc.UnreadCount(rctx, p.UID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	if items == nil {
		items = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, NotificationsResponse{Items: items, Unread: unread})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err := api.svc.MarkRead(ctx.Request().Context(), p.UID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err := api.svc.MarkAllRead(ctx.Request().Context(), p.UID); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) queryAll(ctx echo.Context) error {
	items, err := api.svc.QueryAll(ctx.Request().Context(), intParam(ctx, "limit", defaultNotificationLimit))
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if items == nil {
		items = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, items)
}

type NotificationsResponse struct {
	Items  []notification.Notification `json:"items"`
	Unread int                         `json:"unread"`
}
