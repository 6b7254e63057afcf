package _202607101330_depositors

import (
	"database/sql"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists depositors (
			depositor_address varchar(255) not null,
			yield_token_address varchar(255) not null,
			network varchar(255) not null,
			yield_token_amount numeric not null default 0,
			total_underlying_token_earned double precision not null default 0,
			total_donation_received double precision not null default 0,
			created_at timestamp with time zone default current_timestamp,
			updated_at timestamp with time zone default null,
			unique(depositor_address, yield_token_address, network)
		)`,
		`create index if not exists idx_depositors_yield_token on depositors (yield_token_address, network)`,
	}

	for _, query := range queries {
		res := grm.Exec(query)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202607101330_depositors"
}
