package main

import (
	"github.com/fisker/bcm-backend/internal/app"
)

// @title           BCM Approval API
// @version         1.0
// @description     BCM 变更审批工作流 API 文档

// @contact.name   API Support

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize application
	application, err := app.Initialize("")
	if err != nil {
		panic(err)
	}

	// Start server
	app.StartServer(application)
}
