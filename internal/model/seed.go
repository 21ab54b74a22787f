package model

import (
	_ "embed"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// SampleCSV is the bundled sample upload used for demo data.
//
//go:embed sample_equipment_data.csv
var SampleCSV []byte

const (
	SampleFilename = "sample_equipment_data.csv"

	demoUsername = "demo"
	demoPassword = "demo1234"
)

// EnsureDemoUser returns the demo account, creating it on first use.
func EnsureDemoUser() (*User, error) {
	user, err := GetUserByUsername(demoUsername)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &User{Username: demoUsername, Email: "demo@example.com", FirstName: "Demo"}
	if err := user.SetPassword(demoPassword); err != nil {
		return nil, err
	}
	if err := CreateUser(user); err != nil {
		return nil, fmt.Errorf("create demo user: %w", err)
	}
	return user, nil
}
