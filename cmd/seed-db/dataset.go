package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

type dataset struct {
	Restaurants []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"restaurants"`
	Dishes []struct {
		ID           int64           `json:"id"`
		RestaurantID int64           `json:"restaurantId"`
		Name         string          `json:"name"`
		Price        decimal.Decimal `json:"price"`
		Inactive     bool            `json:"inactive"`
	} `json:"dishes"`
	PaymentMethods []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Code     string `json:"code"`
		Category string `json:"category"`
		Inactive bool   `json:"inactive"`
	} `json:"paymentMethods"`
	Accounts []struct {
		ID           int64  `json:"id"`
		DisplayName  string `json:"displayName"`
		Email        string `json:"email"`
		SessionToken string `json:"sessionToken"`
		Addresses    []struct {
			ID         int64  `json:"id"`
			Label      string `json:"label"`
			Line1      string `json:"line1"`
			Line2      string `json:"line2"`
			City       string `json:"city"`
			PostalCode string `json:"postalCode"`
			Phone      string `json:"phone"`
		} `json:"addresses"`
	} `json:"accounts"`
	APIKeys []struct {
		ID     string   `json:"id"`
		Name   string   `json:"name"`
		Key    string   `json:"key"`
		Scopes []string `json:"scopes"`
	} `json:"apiKeys"`
}

// loadDataset reads path, or the embedded default when path is empty.
// Files ending in .gz are decompressed.
func loadDataset(path string, embedded []byte) (*dataset, error) {
	var r io.Reader = bytes.NewReader(embedded)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open seed file")
		}
		defer func() { _ = f.Close() }()
		r = f

		if strings.HasSuffix(path, ".gz") {
			gz, err := pgzip.NewReader(f)
			if err != nil {
				return nil, errors.Wrap(err, "open gzip stream")
			}
			defer func() { _ = gz.Close() }()
			r = gz
		}
	}

	var ds dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, errors.Wrap(err, "decode seed data")
	}
	return &ds, nil
}
