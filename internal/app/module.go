package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/paymint/paymint/internal/app/api/server"
	"github.com/paymint/paymint/internal/app/service/account"
	notificationlog "github.com/paymint/paymint/internal/app/service/notification_log"
	"github.com/paymint/paymint/internal/app/service/payment"
	"github.com/paymint/paymint/internal/app/service/risk"
	"github.com/paymint/paymint/internal/app/service/webhook"
	"github.com/paymint/paymint/internal/platform/db"
	"github.com/paymint/paymint/internal/platform/eventbus"
	"github.com/paymint/paymint/internal/platform/gateways"
	"github.com/paymint/paymint/pkg/config"
	"github.com/paymint/paymint/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	eventbus.Module,
	gateways.Module,
	server.Module,
	risk.Module,
	account.Module,
	webhook.Module,
	notificationlog.Module,
	payment.Module,
)
