// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel shared by the fee models
//   - fee.go: fee types, students, fee structures and discounts
//   - bill.go: demand bills and their items
//   - transaction.go: fee collections, payment details and bill allocations
package models
