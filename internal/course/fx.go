package course

import (
	"github.com/skillbase/skillbase/internal/course/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("course",
	fx.Provide(repository.Provide),
)
