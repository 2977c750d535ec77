package handler

import (
	"dify-manga/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProxyHandler relays remote images that browsers cannot fetch directly.
type ProxyHandler struct {
	proxy service.ImageProxy
}

func NewProxyHandler(proxy service.ImageProxy) *ProxyHandler {
	return &ProxyHandler{proxy: proxy}
}

// ProxyImage godoc
// @Summary Proxy a generated image
// @Description Only URLs under the configured allowed prefix are fetched.
// @Tags images
// @Produce image/png
// @Param url query string true "Image URL"
// @Success 200 {file} binary
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 504 {object} middleware.ErrorResponse
// @Router /proxy-image [get]
func (h *ProxyHandler) ProxyImage(c *fiber.Ctx) error {
	img, err := h.proxy.Fetch(c.UserContext(), c.Query("url"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, fiber.MethodGet)
	return c.Send(img.Body)
}
