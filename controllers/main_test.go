package controllers_test

import "github.com/gin-gonic/gin"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
