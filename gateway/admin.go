package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/bistro/pkg/eventloop"
	"github.com/example/bistro/pkg/models"
	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 20

type categoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (g *Gateway) onAdmin(c *gin.Context, fn func() (gin.H, error)) (gin.H, error) {
	ctx, cancel := g.requestContext(c)
	defer cancel()

	d := g.surfaces.Admin
	return eventloop.Call(ctx, g.surfaces.AdminLoop, func() (gin.H, error) {
		body, err := fn()
		if err != nil {
			return nil, err
		}
		return withNotice(body, d.Notice()), nil
	})
}

func (g *Gateway) adminReply(c *gin.Context, status int, fn func() (gin.H, error)) {
	body, err := g.onAdmin(c, fn)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(status, body)
}

func (g *Gateway) dashboard(c *gin.Context) {
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"summary": g.surfaces.Admin.Summary()}, nil
	})
}

func (g *Gateway) listMenuItems(c *gin.Context) {
	category, query := c.Query("category"), c.Query("q")
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"items": g.surfaces.Admin.MenuItems(category, query)}, nil
	})
}

func (g *Gateway) createMenuItem(c *gin.Context) {
	var fields models.MenuItemFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		g.badRequest(c, err)
		return
	}

	g.adminReply(c, http.StatusCreated, func() (gin.H, error) {
		item, err := g.surfaces.Admin.AddItem(c.Request.Context(), fields)
		if err != nil {
			return nil, err
		}
		return gin.H{"item": item}, nil
	})
}

// updateMenuItem answers 200 for unknown ids too; "updated" tells them apart.
func (g *Gateway) updateMenuItem(c *gin.Context) {
	var fields models.MenuItemFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		g.badRequest(c, err)
		return
	}

	id := models.ID(c.Param("id"))
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		item, found, err := g.surfaces.Admin.UpdateItem(c.Request.Context(), id, fields)
		if err != nil {
			return nil, err
		}
		body := gin.H{"updated": found}
		if found {
			body["item"] = item
		}
		return body, nil
	})
}

func (g *Gateway) deleteMenuItem(c *gin.Context) {
	id := models.ID(c.Param("id"))
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		removed, err := g.surfaces.Admin.DeleteItem(c.Request.Context(), id, confirmed)
		if err != nil {
			return nil, err
		}
		return gin.H{"deleted": removed}, nil
	})
}

func (g *Gateway) listCategories(c *gin.Context) {
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"categories": g.surfaces.Admin.Categories()}, nil
	})
}

func (g *Gateway) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	g.adminReply(c, http.StatusCreated, func() (gin.H, error) {
		cat, err := g.surfaces.Admin.AddCategory(c.Request.Context(), req.Name, req.Icon)
		if err != nil {
			return nil, err
		}
		return gin.H{"category": cat}, nil
	})
}

func (g *Gateway) listOrders(c *gin.Context) {
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		return gin.H{"orders": g.surfaces.Admin.Orders()}, nil
	})
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	id := models.ID(c.Param("id"))
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		order, found, err := g.surfaces.Admin.SetOrderStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			return nil, err
		}
		body := gin.H{"updated": found}
		if found {
			body["order"] = order
		}
		return body, nil
	})
}

func (g *Gateway) history(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)), 10, 64)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	id := c.Param("id")
	g.adminReply(c, http.StatusOK, func() (gin.H, error) {
		logs, err := g.surfaces.Admin.History(c.Request.Context(), id, limit)
		if err != nil {
			return nil, err
		}
		return gin.H{"history": logs}, nil
	})
}
