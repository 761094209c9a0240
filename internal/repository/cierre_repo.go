package repository

import (
	"context"

	"cierrecaja/internal/dto"
	"cierrecaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CierreRepository persists daily closings together with their lines.
// Every write is a single transaction: readers never observe a summary
// without its lines, or lines from two different versions.
type CierreRepository interface {
	// Create assigns c.ID and stores summary, delivery and count lines.
	Create(ctx context.Context, c *model.CierreDiario) error
	// Update replaces every column of an existing closing and swaps its lines
	// for c's (delete all, insert the new ones).
	Update(ctx context.Context, c *model.CierreDiario) error
	// Delete removes the closing and every line it owns.
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CierreDiario, error)
	// List returns one page ordered by fecha, most recent first.
	List(ctx context.Context, filter dto.CierreFilter) ([]model.CierreDiario, int64, error)
	// Each walks every closing in List order, batchSize at a time. Each call
	// starts again from the most recent closing.
	Each(ctx context.Context, batchSize int, fn func([]model.CierreDiario) error) error
}

type cierreRepo struct{ db *gorm.DB }

func NewCierreRepository(db *gorm.DB) CierreRepository { return &cierreRepo{db: db} }

func (r *cierreRepo) Create(ctx context.Context, c *model.CierreDiario) error {
	asignado := c.ID == uuid.Nil
	if asignado {
		c.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		return insertarLineas(tx, c)
	})
	if err != nil && asignado {
		c.ID = uuid.Nil
	}
	return clasificar(err)
}

func (r *cierreRepo) Update(ctx context.Context, c *model.CierreDiario) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var actual model.CierreDiario
		if err := tx.Select("id", "created_at").First(&actual, "id = ?", c.ID).Error; err != nil {
			return err
		}
		c.CreatedAt = actual.CreatedAt
		if err := tx.Omit(clause.Associations).Save(c).Error; err != nil {
			return err
		}
		if err := borrarLineas(tx, c.ID); err != nil {
			return err
		}
		return insertarLineas(tx, c)
	})
	return clasificar(err)
}

func (r *cierreRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := borrarLineas(tx, id); err != nil {
			return err
		}
		res := tx.Delete(&model.CierreDiario{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoEncontrado
		}
		return nil
	})
	return clasificar(err)
}

func (r *cierreRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CierreDiario, error) {
	var c model.CierreDiario
	err := conLineas(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, clasificar(err)
	}
	return &c, nil
}

func (r *cierreRepo) List(ctx context.Context, filter dto.CierreFilter) ([]model.CierreDiario, int64, error) {
	var cierres []model.CierreDiario
	var total int64

	q := r.db.WithContext(ctx).Model(&model.CierreDiario{})
	if filter.Desde != nil {
		q = q.Where("fecha >= ?", model.NormalizarFecha(*filter.Desde))
	}
	if filter.Hasta != nil {
		q = q.Where("fecha <= ?", model.NormalizarFecha(*filter.Hasta))
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, clasificar(err)
	}

	page, limit := paginacion(filter)
	err := conLineas(q).
		Order("fecha DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&cierres).Error
	return cierres, total, clasificar(err)
}

func (r *cierreRepo) Each(ctx context.Context, batchSize int, fn func([]model.CierreDiario) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	var ultimo *model.CierreDiario
	for {
		q := conLineas(r.db.WithContext(ctx)).Order("fecha DESC, id DESC").Limit(batchSize)
		if ultimo != nil {
			q = q.Where("(fecha, id) < (?, ?)", ultimo.Fecha, ultimo.ID)
		}
		var lote []model.CierreDiario
		if err := q.Find(&lote).Error; err != nil {
			return clasificar(err)
		}
		if len(lote) == 0 {
			return nil
		}
		if err := fn(lote); err != nil {
			return err
		}
		if len(lote) < batchSize {
			return nil
		}
		ultimo = &lote[len(lote)-1]
	}
}

// paginacion defaults a zero page to the first one and a zero limit to 50.
func paginacion(filter dto.CierreFilter) (page, limit int) {
	page, limit = filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return page, limit
}

func conLineas(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Delivery", func(db *gorm.DB) *gorm.DB { return db.Order("canal_id ASC") }).
		Preload("Conteo", func(db *gorm.DB) *gorm.DB { return db.Order("denominacion DESC") })
}

func borrarLineas(tx *gorm.DB, cierreID uuid.UUID) error {
	if err := tx.Where("cierre_id = ?", cierreID).Delete(&model.VentaDelivery{}).Error; err != nil {
		return err
	}
	return tx.Where("cierre_id = ?", cierreID).Delete(&model.ConteoCaja{}).Error
}

func insertarLineas(tx *gorm.DB, c *model.CierreDiario) error {
	for i := range c.Delivery {
		c.Delivery[i].ID = uuid.New()
		c.Delivery[i].CierreID = c.ID
	}
	for i := range c.Conteo {
		c.Conteo[i].ID = uuid.New()
		c.Conteo[i].CierreID = c.ID
	}
	if len(c.Delivery) > 0 {
		if err := tx.Create(&c.Delivery).Error; err != nil {
			return err
		}
	}
	if len(c.Conteo) > 0 {
		if err := tx.Create(&c.Conteo).Error; err != nil {
			return err
		}
	}
	return nil
}
