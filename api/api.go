package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-web/config"
	"github.com/hoshinonyaruko/snake-web/snake"
	"github.com/hoshinonyaruko/snake-web/static"
	"github.com/hoshinonyaruko/snake-web/structs"
)

// NewRouter 注册所有路由
func NewRouter(hub *Hub) *gin.Engine {
	router := gin.Default()

	router.GET("/", static.IndexHandler())
	router.GET("/api/highscore", HighScoreHandler(hub))
	router.POST("/api/sessions", CreateSessionHandler(hub))

	sessions := router.Group("/api/sessions/:id")
	{
		sessions.GET("/ws", hub.WebSocketHandler())
		sessions.GET("/state", StateHandler(hub))
		sessions.POST("/direction", UpdateDirection(hub))
		sessions.POST("/reset", ResetHandler(hub))
		sessions.POST("/speed", SpeedHandler(hub))
		sessions.GET("/render", RenderHandler(hub))
		sessions.DELETE("", DeleteMapHandler(hub))
	}

	// 旧接口，参数走 query，机器人直接 GET
	router.GET("/update-direction", UpdateDirection(hub))
	router.GET("/render-map", RenderMapHandler(hub))
	router.GET("/delete-map", DeleteMapHandler(hub))
	router.Static("/output", "./output")

	return router
}

// sessionID 先取路径参数，没有再取 ?session=
func sessionID(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Query("session")
}

func lookup(hub *Hub, c *gin.Context) (*Session, bool) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: session"})
		return nil, false
	}
	s, ok := hub.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}

func CreateSessionHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := hub.Create()
		c.JSON(http.StatusCreated, gin.H{
			"id":     s.ID,
			"config": gameConfig(),
			"state":  s.Driver.Latest().Snapshot,
		})
	}
}

func StateHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(hub, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Driver.Latest().Snapshot)
	}
}

func UpdateDirection(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		newDirection := c.Query("direction")
		if newDirection == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: direction"})
			return
		}

		// 检查新方向是否合法
		dir, valid := structs.ParseDirection(newDirection)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid direction '%s' provided", newDirection)})
			return
		}

		s, ok := lookup(hub, c)
		if !ok {
			return
		}
		// 反向的请求由引擎忽略，这里照常返回成功
		s.Driver.Direction(dir)
		c.JSON(http.StatusOK, gin.H{"message": "Direction updated successfully"})
	}
}

func ResetHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(hub, c)
		if !ok {
			return
		}
		s.Driver.Reset()
		c.JSON(http.StatusOK, gin.H{"message": "Game reset"})
	}
}

// SpeedHandler sets the tick period in ms, or a slider value when slider=1.
func SpeedHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := strconv.Atoi(c.Query("value"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must be an integer"})
			return
		}
		s, ok := lookup(hub, c)
		if !ok {
			return
		}
		slider := c.Query("slider") == "1"
		var speed int
		if slider {
			speed = structs.MaxSpeed - value
			s.Driver.SetSliderSpeed(value)
		} else {
			speed = value
			s.Driver.SetSpeed(value)
		}
		c.JSON(http.StatusOK, gin.H{"speed": snake.ClampSpeed(speed)})
	}
}

func blockSize(c *gin.Context) int {
	return cellSize(config.GetConfigValue("blocksize").(int), c.Query("blocksize"))
}

// cellSize 请求参数优先，其次是配置，都不合法时用默认值
func cellSize(configured int, query string) int {
	if v, err := strconv.Atoi(query); err == nil && v > 0 && v <= 64 {
		return v
	}
	if configured > 0 {
		return configured
	}
	return config.DefaultBlocksize
}

// RenderHandler 直接返回 PNG
func RenderHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(hub, c)
		if !ok {
			return
		}
		width, _ := strconv.Atoi(c.DefaultQuery("width", "0"))
		data, err := encodeBoard(s.Driver.Latest().Snapshot, blockSize(c), width)
		if err != nil {
			hub.logger.Error("render failed", "session", s.ID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render board"})
			return
		}
		c.Data(http.StatusOK, "image/png", data)
	}
}

// RenderMapHandler 渲染后保存到 output，返回静态地址
func RenderMapHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(hub, c)
		if !ok {
			return
		}
		if _, err := saveBoard(s.Driver.Latest().Snapshot, blockSize(c), s.ID); err != nil {
			hub.logger.Error("render failed", "session", s.ID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render board"})
			return
		}
		imageUrl := fmt.Sprintf("http://%s/output/%s.png", config.GetConfigValue("selfpath").(string), s.ID)
		c.JSON(http.StatusOK, gin.H{"image_url": imageUrl})
	}
}

func DeleteMapHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionID(c)
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: session"})
			return
		}
		if !hub.Delete(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
	}
}

func HighScoreHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		best := 0
		if hub.tracker != nil {
			best = hub.tracker.Best()
		}
		c.JSON(http.StatusOK, gin.H{"high_score": best})
	}
}
