package _202607101315_yieldTokens

import (
	"database/sql"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	query := `
		create table if not exists yield_tokens (
			token_address varchar(255) not null,
			network varchar(255) not null,
			block_number bigint not null,
			transaction_hash varchar(255) not null,
			log_index bigint not null,
			created_at timestamp with time zone default current_timestamp,
			unique(token_address, network)
		)`

	res := grm.Exec(query)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202607101315_yieldTokens"
}
