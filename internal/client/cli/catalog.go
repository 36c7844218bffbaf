package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/format"
	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/client/policy"
	"github.com/dmitrijs2005/coffeedia/internal/client/services"
)

var errUnknownKind = errors.New("unknown kind, use beans, recipes or equipment")

// view is how a catalog item is printed and checked against the policy.
type view struct {
	id      int64
	title   string
	details []string
	owner   policy.Resource
}

type collection interface {
	list(ctx context.Context, page int) ([]view, error)
	get(ctx context.Context, id int64) (view, error)
	remove(ctx context.Context, id int64) error
}

// resourceAPI is the part of services.ResourceService the CLI uses.
type resourceAPI[T any] interface {
	List(ctx context.Context, q services.ListQuery) (*models.Page[T], error)
	Get(ctx context.Context, id int64) (*T, error)
	Delete(ctx context.Context, id int64) error
}

type resourceCollection[T any] struct {
	api    resourceAPI[T]
	toView func(*T) view
}

func (c resourceCollection[T]) list(ctx context.Context, page int) ([]view, error) {
	p, err := c.api.List(ctx, services.ListQuery{Page: page})
	if err != nil {
		return nil, err
	}
	out := make([]view, 0, len(p.Content))
	for i := range p.Content {
		out = append(out, c.toView(&p.Content[i]))
	}
	return out, nil
}

func (c resourceCollection[T]) get(ctx context.Context, id int64) (view, error) {
	item, err := c.api.Get(ctx, id)
	if err != nil {
		return view{}, err
	}
	return c.toView(item), nil
}

func (c resourceCollection[T]) remove(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, id)
}

func newCatalog(api services.API) map[string]collection {
	return map[string]collection{
		"beans":     resourceCollection[models.Bean]{api: services.NewBeanService(api), toView: beanView},
		"recipes":   resourceCollection[models.Recipe]{api: services.NewRecipeService(api), toView: recipeView},
		"equipment": resourceCollection[models.Equipment]{api: services.NewEquipmentService(api), toView: equipmentView},
	}
}

func kindOf(s string) string {
	switch strings.ToLower(s) {
	case "bean", "beans":
		return "beans"
	case "recipe", "recipes":
		return "recipes"
	case "equipment", "equipments":
		return "equipment"
	}
	return ""
}

func (a *App) collection(kind string) (collection, error) {
	c, ok := a.catalog[kindOf(kind)]
	if !ok {
		return nil, errUnknownKind
	}
	return c, nil
}

// List prints one page of a collection. args may hold a 1-based page number.
func (a *App) List(ctx context.Context, kind string, args []string) error {
	c, err := a.collection(kind)
	if err != nil {
		return err
	}

	page := 1
	if len(args) > 0 {
		if page, err = strconv.Atoi(args[0]); err != nil || page < 1 {
			return fmt.Errorf("invalid page %q", args[0])
		}
	}

	items, err := c.list(ctx, page-1)
	if err != nil {
		return describe(err)
	}
	if len(items) == 0 {
		a.println("Nothing here yet.")
		return nil
	}

	subject := a.session.State().Subject()
	for _, v := range items {
		mark := " "
		if policy.IsOwner(subject, v.owner) {
			mark = "*"
		}
		a.println(fmt.Sprintf("%s %4d  %s", mark, v.id, v.title))
	}
	return nil
}

// Show prints one item with its details. args holds the id.
func (a *App) Show(ctx context.Context, kind string, args []string) error {
	c, id, err := a.target(kind, args)
	if err != nil {
		return err
	}

	v, err := c.get(ctx, id)
	if err != nil {
		return describe(err)
	}

	a.println(fmt.Sprintf("#%d %s", v.id, v.title))
	for _, d := range v.details {
		a.println("  " + d)
	}
	if policy.CanPerform(policy.Edit, a.session.State().Subject(), v.owner) {
		a.println("  (yours)")
	}
	return nil
}

// Delete removes an item the current user owns. The policy is checked
// before the request is sent.
func (a *App) Delete(ctx context.Context, kind string, args []string) error {
	c, id, err := a.target(kind, args)
	if err != nil {
		return err
	}

	subject := a.session.State().Subject()
	if policy.RequiresAuth(policy.Delete) && !subject.Authenticated {
		return errNotLoggedIn
	}

	v, err := c.get(ctx, id)
	if err != nil {
		return describe(err)
	}
	if !policy.CanPerform(policy.Delete, subject, v.owner) {
		return errors.New("you can only delete your own items")
	}

	if err := c.remove(ctx, id); err != nil {
		return describe(err)
	}
	a.println("Deleted", v.title+".")
	return nil
}

func (a *App) target(kind string, args []string) (collection, int64, error) {
	c, err := a.collection(kind)
	if err != nil {
		return nil, 0, err
	}
	if len(args) == 0 {
		return nil, 0, errors.New("missing id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid id %q", args[0])
	}
	return c, id, nil
}

func beanView(b *models.Bean) view {
	details := []string{
		"Roaster:   " + b.Roaster,
		"Origin:    " + joinNonEmpty(", ", b.Origin.Country, b.Origin.Region, b.Origin.Farm),
		"Roast:     " + format.RoastLevel(b.RoastLevel),
		"Process:   " + format.ProcessType(b.ProcessType),
		"Blend:     " + format.BlendType(b.BlendType),
	}
	if b.RoastDate != "" {
		details = append(details, "Roasted:   "+format.DateString(b.RoastDate))
	}
	if b.Grams > 0 {
		details = append(details, fmt.Sprintf("Weight:    %dg", b.Grams))
	}
	if b.IsDecaf {
		details = append(details, "Decaf")
	}
	if len(b.Flavors) > 0 {
		names := make([]string, 0, len(b.Flavors))
		for _, f := range b.Flavors {
			names = append(names, f.Name)
		}
		details = append(details, "Flavors:   "+strings.Join(names, ", "))
	}
	details = append(details, added(b.CreatedAt)...)
	return view{id: b.ID, title: b.Name, details: details, owner: b}
}

func recipeView(r *models.Recipe) view {
	details := []string{
		"Category:  " + format.Category(r.Category),
		fmt.Sprintf("Serving:   %d", r.Serving),
	}
	if r.Description != "" {
		details = append(details, r.Description)
	}
	for _, in := range r.Ingredients {
		details = append(details, fmt.Sprintf("- %s %g%s", in.Name, in.Amount, in.Unit))
	}
	for i, s := range r.Steps {
		details = append(details, fmt.Sprintf("%d. %s", i+1, s.Description))
	}
	if len(r.Tags) > 0 {
		details = append(details, "Tags:      #"+strings.Join(r.Tags, " #"))
	}
	details = append(details, added(r.CreatedAt)...)
	return view{id: r.ID, title: r.Title, details: details, owner: r}
}

func equipmentView(e *models.Equipment) view {
	details := []string{
		"Type:      " + format.EquipmentType(e.Type),
		"Brand:     " + e.Brand,
	}
	if e.BuyDate != "" {
		details = append(details, "Bought:    "+format.DateString(e.BuyDate))
	}
	if e.Description != "" {
		details = append(details, e.Description)
	}
	details = append(details, added(e.CreatedAt)...)
	return view{id: e.ID, title: e.Name, details: details, owner: e}
}

func added(t time.Time) []string {
	if t.IsZero() {
		return nil
	}
	return []string{"Added:     " + format.Relative(t, time.Now())}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
