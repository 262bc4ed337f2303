package gateway

import (
	"net/http"

	"github.com/example/bistro/pkg/eventloop"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/storefront"
	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	ID models.ID `json:"id" binding:"required"`
}

type quantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type codeRequest struct {
	CountryCode string `json:"countryCode"`
	PhoneNumber string `json:"phoneNumber"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

// onStorefront runs fn on the storefront loop and collects the pending
// notice in the same turn.
func (g *Gateway) onStorefront(c *gin.Context, fn func() (gin.H, error)) (gin.H, error) {
	ctx, cancel := g.requestContext(c)
	defer cancel()

	sf := g.surfaces.Storefront
	return eventloop.Call(ctx, g.surfaces.StorefrontLoop, func() (gin.H, error) {
		body, err := fn()
		if err != nil {
			return nil, err
		}
		return withNotice(body, sf.Notice()), nil
	})
}

func (g *Gateway) storefrontReply(c *gin.Context, status int, fn func() (gin.H, error)) {
	body, err := g.onStorefront(c, fn)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(status, body)
}

func (g *Gateway) getMenu(c *gin.Context) {
	category, query := c.Query("category"), c.Query("q")
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"menu": g.surfaces.Storefront.Menu(category, query)}, nil
	})
}

func (g *Gateway) getCart(c *gin.Context) {
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"cart": g.surfaces.Storefront.Cart()}, nil
	})
}

func (g *Gateway) addToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		view, added := g.surfaces.Storefront.AddToCart(req.ID)
		return gin.H{"cart": view, "added": added}, nil
	})
}

func (g *Gateway) adjustQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	id := models.ID(c.Param("id"))
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"cart": g.surfaces.Storefront.AdjustQuantity(id, req.Delta)}, nil
	})
}

func (g *Gateway) removeFromCart(c *gin.Context) {
	id := models.ID(c.Param("id"))
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"cart": g.surfaces.Storefront.RemoveFromCart(id)}, nil
	})
}

func (g *Gateway) toggleCart(c *gin.Context) {
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"cart": g.surfaces.Storefront.ToggleCart()}, nil
	})
}

func (g *Gateway) checkout(c *gin.Context) {
	g.storefrontReply(c, http.StatusCreated, func() (gin.H, error) {
		order, err := g.surfaces.Storefront.Checkout(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return gin.H{"order": order, "message": storefront.Confirmation(order)}, nil
	})
}

func (g *Gateway) requestCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		view, err := g.surfaces.Storefront.RequestCode(c.Request.Context(), req.CountryCode, req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		return gin.H{"auth": view}, nil
	})
}

func (g *Gateway) resendCode(c *gin.Context) {
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		view, err := g.surfaces.Storefront.ResendCode(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return gin.H{"auth": view}, nil
	})
}

func (g *Gateway) verifyCode(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		view, err := g.surfaces.Storefront.SubmitCode(c.Request.Context(), req.Code)
		if err != nil {
			return nil, err
		}
		return gin.H{"auth": view}, nil
	})
}

func (g *Gateway) getSession(c *gin.Context) {
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"auth": g.surfaces.Storefront.Auth(c.Request.Context())}, nil
	})
}

func (g *Gateway) logout(c *gin.Context) {
	g.storefrontReply(c, http.StatusOK, func() (gin.H, error) {
		view, err := g.surfaces.Storefront.Logout(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return gin.H{"auth": view}, nil
	})
}
