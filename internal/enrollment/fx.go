package enrollment

import (
	"github.com/skillbase/skillbase/internal/enrollment/repository"
	"github.com/skillbase/skillbase/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
