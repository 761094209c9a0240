package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Storage failures are classified into these sentinels so callers can branch
// with errors.Is. The original error stays in the chain.
var (
	ErrNoEncontrado               = errors.New("cierre no encontrado")
	ErrAlmacenamientoNoDisponible = errors.New("almacenamiento no disponible")
	ErrPermisoDenegado            = errors.New("permiso denegado por el almacenamiento")
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgInsufficientPrivilege = "42501"
	pgTooManyConnections    = "53300"
	pgAdminShutdown         = "57P01"
	pgCannotConnectNow      = "57P03"
	pgConnectionClass       = "08"
)

func clasificar(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoEncontrado) || errors.Is(err, ErrAlmacenamientoNoDisponible) || errors.Is(err, ErrPermisoDenegado) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNoEncontrado, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgInsufficientPrivilege:
			return fmt.Errorf("%w: %w", ErrPermisoDenegado, err)
		case strings.HasPrefix(pgErr.Code, pgConnectionClass),
			pgErr.Code == pgTooManyConnections,
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgCannotConnectNow:
			return fmt.Errorf("%w: %w", ErrAlmacenamientoNoDisponible, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrAlmacenamientoNoDisponible, err)
	}
	return err
}
