package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/db"
	"github.com/Ashnagdarc/Nest-sub004/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GearController struct{ *Srv }

func GetGearController(s *Srv) *GearController { return &GearController{Srv: s} }

// POST /api/gears (admin)
func (gc *GearController) CreateGear(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		Category string `json:"category"`
		Quantity int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	g := &models.Gear{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Category:          in.Category,
		Status:            "active",
		QuantityOwned:     in.Quantity,
		QuantityAvailable: in.Quantity,
	}
	if err := gc.Repo.CreateGear(c.Request.Context(), g); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, g)
}

// GET /api/gears?q=&status=&page=&size=
func (gc *GearController) ListGears(c *gin.Context) {
	q := db.GearQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := gc.Repo.ListGears(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/gears/:id
func (gc *GearController) GetGear(c *gin.Context) {
	g, err := gc.Repo.FindGearByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "gear not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, g)
}
