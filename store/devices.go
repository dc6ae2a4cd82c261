package store

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/gobuffalo/nulls"
	"github.com/lumicore/lumid/errors"
)

// Device is a container for information regarding a known device.
type Device struct {
	// UniqueID is the durable identity of the device.
	UniqueID string
	// Name is an optional human-readable name.
	Name nulls.String
	// FirstSeen is when the device was registered for the first time.
	FirstSeen time.Time
	// LastSeen is the last time the device changed its active state.
	LastSeen time.Time
}

// DeviceByUniqueID retrieves a Device by its unique id.
func (m *Mall) DeviceByUniqueID(ctx context.Context, uniqueID string) (Device, error) {
	// Build query.
	q, _, err := m.dialect.From("devices").
		Select(goqu.C("unique_id"),
			goqu.C("name"),
			goqu.C("first_seen"),
			goqu.C("last_seen")).
		Where(goqu.C("unique_id").Eq(uniqueID)).ToSQL()
	if err != nil {
		return Device{}, errors.NewQueryToSQLError(err, errors.Details{"unique_id": uniqueID})
	}
	// Query.
	rows, err := m.db.QueryContext(ctx, q)
	if err != nil {
		return Device{}, errors.NewExecQueryError(err, "query device", q)
	}
	defer rows.Close()
	// Scan.
	if !rows.Next() {
		return Device{}, errors.NewResourceNotFoundError("device not found", errors.Details{"unique_id": uniqueID})
	}
	var device Device
	err = rows.Scan(&device.UniqueID,
		&device.Name,
		&device.FirstSeen,
		&device.LastSeen)
	if err != nil {
		return Device{}, errors.NewScanDBRowError(err, "scan row", q)
	}
	return device, nil
}

// RecordDeviceOnline retrieves the Device with the given unique id. If none
// was found, a new one is created. The second return value describes whether
// the device was created. In any case, the last seen timestamp is set to the
// current time and the name is updated when a non-empty one is given.
func (m *Mall) RecordDeviceOnline(ctx context.Context, uniqueID string, name string) (Device, bool, error) {
	// Begin tx.
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Device{}, false, errors.NewDBTxBeginError(err)
	}
	// Build lookup query.
	q, _, err := m.dialect.From("devices").
		Select(goqu.C("unique_id")).
		Where(goqu.C("unique_id").Eq(uniqueID)).ToSQL()
	if err != nil {
		m.rollbackTx(tx, "lookup query to sql failed")
		return Device{}, false, errors.NewQueryToSQLError(err, errors.Details{"unique_id": uniqueID})
	}
	// Query.
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		m.rollbackTx(tx, "exec lookup query failed")
		return Device{}, false, errors.NewExecQueryError(err, "exec lookup query", q)
	}
	found := rows.Next()
	rows.Close()
	now := time.Now()
	if found {
		// Update last seen timestamp and optionally the name.
		newRecord := goqu.Record{
			"last_seen": now,
		}
		if name != "" {
			newRecord["name"] = nulls.NewString(name)
		}
		q, _, err = m.dialect.Update("devices").Set(newRecord).
			Where(goqu.C("unique_id").Eq(uniqueID)).ToSQL()
		if err != nil {
			m.rollbackTx(tx, "update query to sql failed")
			return Device{}, false, errors.NewQueryToSQLError(err, errors.Details{"unique_id": uniqueID})
		}
		_, err = tx.ExecContext(ctx, q)
		if err != nil {
			m.rollbackTx(tx, "exec update query failed")
			return Device{}, false, errors.NewExecQueryError(err, "exec update query", q)
		}
	} else {
		// Not found -> create.
		newDeviceName := nulls.String{}
		if name != "" {
			newDeviceName = nulls.NewString(name)
		}
		q, _, err = m.dialect.Insert("devices").Rows(goqu.Record{
			"unique_id":  uniqueID,
			"name":       newDeviceName,
			"first_seen": now,
			"last_seen":  now,
		}).ToSQL()
		if err != nil {
			m.rollbackTx(tx, "create query to sql failed")
			return Device{}, false, errors.NewQueryToSQLError(err, errors.Details{"unique_id": uniqueID})
		}
		result, err := tx.ExecContext(ctx, q)
		if err != nil {
			m.rollbackTx(tx, "exec create query failed")
			return Device{}, false, errors.NewExecQueryError(err, "exec create query", q)
		}
		rowsAffected, err := result.RowsAffected()
		if err == nil && rowsAffected != 1 {
			m.rollbackTx(tx, "new device not created")
			return Device{}, false, errors.NewInternalError("new device not created", errors.Details{"query": q})
		}
	}
	// Build final retrieve query.
	q, _, err = m.dialect.From("devices").
		Select(goqu.C("unique_id"),
			goqu.C("name"),
			goqu.C("first_seen"),
			goqu.C("last_seen")).
		Where(goqu.C("unique_id").Eq(uniqueID)).ToSQL()
	if err != nil {
		m.rollbackTx(tx, "retrieve query to sql failed")
		return Device{}, false, errors.NewQueryToSQLError(err, errors.Details{"unique_id": uniqueID})
	}
	rows, err = tx.QueryContext(ctx, q)
	if err != nil {
		m.rollbackTx(tx, "query final device failed")
		return Device{}, false, errors.NewExecQueryError(err, "query final device", q)
	}
	defer rows.Close()
	if !rows.Next() {
		m.rollbackTx(tx, "missing device although should be created")
		return Device{}, false, errors.NewInternalError("missing device although should be created", nil)
	}
	var device Device
	err = rows.Scan(&device.UniqueID,
		&device.Name,
		&device.FirstSeen,
		&device.LastSeen)
	if err != nil {
		m.rollbackTx(tx, "scan final row failed")
		return Device{}, false, errors.NewScanDBRowError(err, "scan final row", q)
	}
	rows.Close()
	// Commit.
	err = tx.Commit()
	if err != nil {
		return Device{}, false, errors.NewDBTxCommitError(err)
	}
	return device, !found, nil
}

// UpdateDeviceLastSeen updates the last seen timestamp for the device with the
// given unique id.
func (m *Mall) UpdateDeviceLastSeen(ctx context.Context, uniqueID string) error {
	// Build query.
	q, _, err := m.dialect.Update("devices").Set(goqu.Record{
		"last_seen": time.Now(),
	}).Where(goqu.C("unique_id").Eq(uniqueID)).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, errors.Details{"unique_id": uniqueID})
	}
	// Exec.
	result, err := m.db.ExecContext(ctx, q)
	if err != nil {
		return errors.NewExecQueryError(err, "exec query", q)
	}
	// Assure found.
	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected != 1 {
		return errors.NewResourceNotFoundError("device not found", errors.Details{"unique_id": uniqueID})
	}
	return nil
}

// KnownDevices retrieves all devices that were ever seen.
func (m *Mall) KnownDevices(ctx context.Context) ([]Device, error) {
	// Build query.
	q, _, err := m.dialect.From("devices").
		Select(goqu.C("unique_id"),
			goqu.C("name"),
			goqu.C("first_seen"),
			goqu.C("last_seen")).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	rows, err := m.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query known devices", q)
	}
	defer rows.Close()
	// Scan.
	devices := make([]Device, 0)
	for rows.Next() {
		var device Device
		err = rows.Scan(&device.UniqueID,
			&device.Name,
			&device.FirstSeen,
			&device.LastSeen)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan row", q)
		}
		devices = append(devices, device)
	}
	return devices, nil
}
