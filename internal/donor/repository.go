package donor

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

const selectDonor = `
	SELECT donn_numero, date_of_birth, ethnicity, sex,
		hla_a_1, hla_a_2, hla_b_1, hla_b_2, hla_c_1, hla_c_2,
		hla_drb1_1, hla_drb1_2, hla_dqb1_1, hla_dqb1_2,
		wmda_id, search_id
	FROM person_data
	WHERE donn_numero = $1
`

func (r *Repository) FetchDonor(ctx context.Context, donorID string) (*Record, error) {
	var (
		dob, ethnicity, sex sql.NullString
		hla                 [10]sql.NullString
		wmdaID, searchID    sql.NullString
		rec                 Record
	)

	err := r.db.QueryRowContext(ctx, selectDonor, donorID).Scan(
		&rec.DonorID, &dob, &ethnicity, &sex,
		&hla[0], &hla[1], &hla[2], &hla[3], &hla[4],
		&hla[5], &hla[6], &hla[7], &hla[8], &hla[9],
		&wmdaID, &searchID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Warn("donor not found", zap.String("donor_id", donorID))
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "fetch donor", Err: err}
	}

	rec.DateOfBirth = dob.String
	rec.Ethnicity = ethnicity.String
	rec.Sex = sex.String
	rec.HLA = HLA{
		A:    HLATyping{Field1: hla[0].String, Field2: hla[1].String},
		B:    HLATyping{Field1: hla[2].String, Field2: hla[3].String},
		C:    HLATyping{Field1: hla[4].String, Field2: hla[5].String},
		DRB1: HLATyping{Field1: hla[6].String, Field2: hla[7].String},
		DQB1: HLATyping{Field1: hla[8].String, Field2: hla[9].String},
	}
	rec.PatientRegistryID = wmdaID.String
	rec.SearchID = searchID.String

	return &rec, nil
}

// FetchPatientRegistryID returns the stored wmdaId. A missing row and an
// empty column both yield ErrPatientRegistryIDNotFound.
func (r *Repository) FetchPatientRegistryID(ctx context.Context, donorID string) (string, error) {
	id, err := r.fetchColumn(ctx, "fetch patient registry id",
		`SELECT wmda_id FROM person_data WHERE donn_numero = $1`, donorID)
	if err != nil {
		return "", err
	}
	if id == "" {
		r.logger.Warn("patient registry id not found", zap.String("donor_id", donorID))
		return "", ErrPatientRegistryIDNotFound
	}
	return id, nil
}

func (r *Repository) FetchSearchID(ctx context.Context, donorID string) (string, error) {
	id, err := r.fetchColumn(ctx, "fetch search id",
		`SELECT search_id FROM person_data WHERE donn_numero = $1`, donorID)
	if err != nil {
		return "", err
	}
	if id == "" {
		r.logger.Warn("search id not found", zap.String("donor_id", donorID))
		return "", ErrSearchIDNotFound
	}
	return id, nil
}

func (r *Repository) fetchColumn(ctx context.Context, op, query, donorID string) (string, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, query, donorID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", &StoreError{Op: op, Err: err}
	}
	return value.String, nil
}

// PersistSearchID overwrites search_id with the latest search.
func (r *Repository) PersistSearchID(ctx context.Context, donorID, searchID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE person_data SET search_id = $1 WHERE donn_numero = $2`,
		searchID, donorID,
	)
	if err != nil {
		return &StoreError{Op: "persist search id", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "persist search id", Err: err}
	}
	if n == 0 {
		r.logger.Warn("donor not found", zap.String("donor_id", donorID))
		return ErrDonorNotFound
	}
	return nil
}

// PersistPatientRegistryID writes wmda_id only while it is still unset and
// reports whether a row was written.
func (r *Repository) PersistPatientRegistryID(ctx context.Context, donorID, patientRegistryID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE person_data
		SET wmda_id = $1
		WHERE donn_numero = $2 AND (wmda_id IS NULL OR wmda_id = '')
	`, patientRegistryID, donorID)
	if err != nil {
		return false, &StoreError{Op: "persist patient registry id", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, &StoreError{Op: "persist patient registry id", Err: err}
	}
	return n > 0, nil
}
