package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/santoshho/laundry/internal/validation"
)

// Form inputs are decoded by hand from r.FormValue and checked with the
// validation package.

type registerInput struct {
	Name            string `form:"name" validate:"required,max=100"`
	Email           string `form:"email" validate:"required,email,max=200"`
	Phone           string `form:"phone" validate:"omitempty,phone"`
	Address         string `form:"address" validate:"max=300"`
	Password        string `form:"password" validate:"required,min=6,max=72,bcryptlen"`
	ConfirmPassword string `form:"confirm_password" validate:"omitempty,eqfield=Password"`
}

func parseRegister(r *http.Request) registerInput {
	name := field(r, "name")
	if name == "" {
		// Older forms split the name.
		name = strings.TrimSpace(field(r, "first_name") + " " + field(r, "last_name"))
	}
	return registerInput{
		Name:            name,
		Email:           strings.ToLower(field(r, "email")),
		Phone:           field(r, "phone"),
		Address:         field(r, "address"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}
}

type orderInput struct {
	Name           string  `form:"name" validate:"required,max=100"`
	Phone          string  `form:"phone" validate:"required,phone"`
	Address        string  `form:"address" validate:"required,max=300"`
	ServiceID      int     `form:"service_id" validate:"min=0"`
	Quantity       float64 `form:"quantity" validate:"omitempty,gt=0,max=1000"`
	Items          string  `form:"items" validate:"max=2000"`
	Notes          string  `form:"notes" validate:"max=2000"`
	PickupDate     string  `form:"pickup_date" validate:"omitempty,datetime=2006-01-02"`
	DeliveryMethod string  `form:"delivery_method" validate:"omitempty,oneof=pickup delivery"`
}

// validate adds the rule the tags cannot express: a chosen service needs a
// quantity to be priced.
func (in orderInput) validate() map[string]string {
	errs := validation.Struct(in)
	if in.ServiceID != 0 && in.Quantity == 0 {
		if errs == nil {
			errs = map[string]string{}
		}
		if _, ok := errs["quantity"]; !ok {
			errs["quantity"] = "Quantity is required when a service is chosen."
		}
	}
	return errs
}

func parseOrder(r *http.Request) orderInput {
	qty := field(r, "quantity")
	if qty == "" {
		qty = field(r, "kg")
	}
	quantity, _ := strconv.ParseFloat(qty, 64)
	serviceID, _ := strconv.Atoi(field(r, "service_id"))
	return orderInput{
		Name:           field(r, "name"),
		Phone:          field(r, "phone"),
		Address:        field(r, "address"),
		ServiceID:      serviceID,
		Quantity:       quantity,
		Items:          field(r, "items"),
		Notes:          field(r, "notes"),
		PickupDate:     field(r, "pickup_date"),
		DeliveryMethod: field(r, "delivery_method"),
	}
}

type serviceInput struct {
	Name        string  `form:"name" validate:"required,max=100"`
	Description string  `form:"description" validate:"max=500"`
	Price       float64 `form:"price" validate:"gt=0"`
	Unit        string  `form:"unit" validate:"required,oneof=kg item load"`
	Available   bool    `form:"available"`
}

func parseService(r *http.Request) serviceInput {
	price, _ := strconv.ParseFloat(field(r, "price"), 64)
	available := r.FormValue("available")
	return serviceInput{
		Name:        field(r, "name"),
		Description: field(r, "description"),
		Price:       price,
		Unit:        field(r, "unit"),
		Available:   available == "on" || available == "true" || available == "1",
	}
}

type profileInput struct {
	Name    string `form:"name" validate:"required,max=100"`
	Phone   string `form:"phone" validate:"omitempty,phone"`
	Address string `form:"address" validate:"max=300"`
}

type passwordInput struct {
	Password        string `form:"new_password" validate:"required,min=6,max=72,bcryptlen"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
}

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}
