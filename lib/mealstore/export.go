package mealstore

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"kmeal-backend/lib/scrapers/ktportal"
)

// utf-8 BOM so spreadsheet software decodes the korean item names
var csvBom = []byte{0xEF, 0xBB, 0xBF}

func ExportCSV(path string, records []ktportal.MenuRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write(csvBom)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	err = writer.Write([]string{"date", "dining_time", "place", "price", "kcal", "menu_items"})
	if err != nil {
		return err
	}
	for _, record := range records {
		err := writer.Write([]string{
			record.Date,
			string(record.DiningTime),
			record.Place,
			strconv.Itoa(record.Price),
			strconv.Itoa(record.Kcal),
			strings.Join(record.Items, "; "),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type exportedMenu struct {
	Date       string   `json:"date"`
	DiningTime string   `json:"dining_time"`
	Place      string   `json:"place"`
	Price      int      `json:"price"`
	Kcal       int      `json:"kcal"`
	Menu       []string `json:"menu"`
}

func ExportJSON(path string, records []ktportal.MenuRecord) error {
	out := make([]exportedMenu, len(records))
	for i, record := range records {
		out[i] = exportedMenu{
			Date:       record.Date,
			DiningTime: string(record.DiningTime),
			Place:      record.Place,
			Price:      record.Price,
			Kcal:       record.Kcal,
			Menu:       record.Items,
		}
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}
