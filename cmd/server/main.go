package main

import (
	_ "github.com/careloop/companion-backend/docs"
	"github.com/careloop/companion-backend/internal/bootstrap"
)

// @title Companion Backend API
// @version 1.0.0
// @description API server for the avatar companion platform

// @BasePath /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	bootstrap.Run()
}
