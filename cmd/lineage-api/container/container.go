package container

import (
	"fmt"

	"github.com/lyzr/lineage/cmd/lineage-api/service"
	"github.com/lyzr/lineage/common/bootstrap"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Services
	LineageService *service.LineageService
}

// NewContainer initializes all services once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	if components == nil || components.Engine == nil {
		return nil, fmt.Errorf("bootstrap components with an engine are required")
	}

	lineageService := service.NewLineageService(components.Engine, components.Logger)

	return &Container{
		Components:     components,
		LineageService: lineageService,
	}, nil
}
