package _202607141100_harvestEvents

import (
	"database/sql"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists harvest_events (
			id varchar(255) not null primary key,
			yield_token_address varchar(255) not null,
			total_harvested numeric not null,
			credit numeric not null,
			block_number bigint not null,
			transaction_hash varchar(255) not null,
			log_index bigint not null,
			network varchar(255) not null,
			created_at timestamp with time zone default current_timestamp
		)`,
		`create table if not exists user_harvest_shares (
			id varchar(255) not null primary key,
			harvest_event_id varchar(255) not null references harvest_events(id),
			depositor_address varchar(255) not null,
			yield_token_address varchar(255) not null,
			shares numeric not null,
			total_alchemist_shares numeric not null,
			earnings double precision not null,
			block_number bigint not null,
			network varchar(255) not null,
			created_at timestamp with time zone default current_timestamp
		)`,
		`create index if not exists idx_user_harvest_shares_depositor on user_harvest_shares (depositor_address, yield_token_address, network)`,
		`create index if not exists idx_user_harvest_shares_event on user_harvest_shares (harvest_event_id)`,
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
	return "202607141100_harvestEvents"
}
