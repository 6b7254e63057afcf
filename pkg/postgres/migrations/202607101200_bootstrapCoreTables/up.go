package _202607101200_bootstrapCoreTables

import (
	"database/sql"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists blocks (
			number bigint not null primary key,
			hash varchar(255) not null,
			parent_hash varchar(255),
			block_time timestamp with time zone not null,
			created_at timestamp with time zone default current_timestamp
		)`,
		`create table if not exists transaction_logs (
			transaction_hash varchar(255) not null,
			transaction_index bigint not null,
			block_number bigint not null references blocks(number) on delete cascade,
			address varchar(255) not null,
			arguments jsonb,
			event_name varchar(255) not null,
			log_index bigint not null,
			output_data jsonb,
			created_at timestamp with time zone default current_timestamp,
			unique(transaction_hash, log_index)
		)`,
		`create index if not exists idx_transaction_logs_block_number on transaction_logs (block_number)`,
		`create index if not exists idx_transaction_logs_address_event on transaction_logs (address, event_name)`,
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
	return "202607101200_bootstrapCoreTables"
}
