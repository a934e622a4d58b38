package purchase

import (
	"github.com/skillbase/skillbase/internal/config"
	"github.com/skillbase/skillbase/internal/purchase/adapters/cardpay"
	"github.com/skillbase/skillbase/internal/purchase/adapters/orderpay"
	"github.com/skillbase/skillbase/internal/purchase/domain"
	"github.com/skillbase/skillbase/internal/purchase/repository"
	"github.com/skillbase/skillbase/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(
		repository.Provide,
		func(cfg config.Config) domain.CardCheckoutProvider { return cardpay.New(cfg.Cardpay) },
		func(cfg config.Config) domain.OrderProvider { return orderpay.New(cfg.Orderpay) },
		service.New,
	),
)
