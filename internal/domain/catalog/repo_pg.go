package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labcore/labcore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) LoadAll(ctx context.Context) ([]*Panel, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM panels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query panels: %w", err)
	}
	defer rows.Close()

	var panels []*Panel
	byID := make(map[int64]*Panel)
	for rows.Next() {
		var p Panel
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan panel: %w", err)
		}
		panels = append(panels, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate panels: %w", err)
	}

	itemRows, err := r.conn(ctx).Query(ctx, `
		SELECT pi.panel_id, mi.id, mi.name, mi.unit, mi.demographic
		FROM panel_items pi
		JOIN measurement_items mi ON mi.id = pi.item_id
		ORDER BY pi.panel_id, mi.name`)
	if err != nil {
		return nil, fmt.Errorf("query panel items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var panelID int64
		var item Item
		if err := itemRows.Scan(&panelID, &item.ID, &item.Name, &item.Unit, &item.Demographic); err != nil {
			return nil, fmt.Errorf("scan panel item: %w", err)
		}
		if p, ok := byID[panelID]; ok {
			p.Items = append(p.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate panel items: %w", err)
	}

	return panels, nil
}
