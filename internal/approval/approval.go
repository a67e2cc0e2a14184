// Package approval drives the request/approve workflow for firewall objects
// and rules. Every approval writes to the device first and only then mutates
// the local inventory, so a device failure leaves the request Pending and the
// inventory untouched.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/haimskira/net-ops-v3/internal/device"
	"github.com/haimskira/net-ops-v3/internal/inventory"
	"github.com/haimskira/net-ops-v3/internal/model"
	"github.com/haimskira/net-ops-v3/pkg/wellknown"
)

var (
	// ErrNotPending is returned when the referenced request does not exist
	// or was already processed.
	ErrNotPending = errors.New("request not found or already processed")

	// ErrDuplicatePending is returned when an identical rule request is
	// already waiting for approval.
	ErrDuplicatePending = errors.New("identical request already pending")
)

// Approver executes the approval workflow against a store and a device
// writer.
type Approver struct {
	store  *inventory.Store
	writer device.Writer
}

func New(store *inventory.Store, writer device.Writer) *Approver {
	return &Approver{store: store, writer: writer}
}

// SubmitObjectRequest validates and queues a new object request.
func (a *Approver) SubmitObjectRequest(ctx context.Context, req *model.ObjectRequest) error {
	if req.Name == "" {
		return fmt.Errorf("object name must not be empty")
	}
	if err := ValidateObjectValue(req.ObjType, req.Value); err != nil {
		return err
	}
	return a.store.CreateObjectRequest(ctx, req)
}

// SubmitRuleRequest queues a new rule request unless an identical one is
// already pending.
func (a *Approver) SubmitRuleRequest(ctx context.Context, req *model.RuleRequest) error {
	existing, err := a.store.FindPendingRuleDuplicate(ctx, req.SourceIP, req.DestinationIP, req.ServicePort)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w (id %d)", ErrDuplicatePending, existing.ID)
	}
	if req.Protocol == "" {
		req.Protocol = "tcp"
	}
	if req.Application == "" {
		req.Application = "any"
	}
	if req.DurationHours == 0 {
		req.DurationHours = 48
	}
	return a.store.CreateRuleRequest(ctx, req)
}

var objectTypeLabels = map[string]string{
	"address":       "Address Object",
	"address-group": "Address Group",
	"service":       "Service Object",
	"service-group": "Service Group",
}

// ApproveObject pushes the requested object to the device and upserts the
// matching inventory row. Re-running after a partial failure is safe: the
// local insert is skipped when a row with the same name already exists.
func (a *Approver) ApproveObject(ctx context.Context, id uint, admin string) error {
	req, err := a.store.GetObjectRequest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil || req.Status != model.StatusPending {
		return ErrNotPending
	}

	name := strings.TrimSpace(req.Name)
	value := strings.TrimSpace(req.Value)
	protocol := req.Protocol
	if protocol == "" {
		protocol = "tcp"
	}

	var insert func(tx *inventory.Store) error
	switch req.ObjType {
	case "address":
		masked := addressWithMask(value, req.Prefix)
		if err := a.writer.CreateAddress(name, masked); err != nil {
			return fmt.Errorf("device create address %q: %w", name, err)
		}
		insert = func(tx *inventory.Store) error {
			existing, err := tx.FindAddressByName(ctx, name)
			if err != nil || existing != nil {
				return err
			}
			return tx.CreateAddress(ctx, &model.AddressObject{Name: name, Type: model.TypeIPNetmask, Value: masked})
		}

	case "address-group":
		members := splitMembers(value)
		if err := a.writer.CreateAddressGroup(name, members); err != nil {
			return fmt.Errorf("device create address group %q: %w", name, err)
		}
		insert = func(tx *inventory.Store) error {
			existing, err := tx.FindAddressByName(ctx, name)
			if err != nil || existing != nil {
				return err
			}
			return tx.CreateAddress(ctx, &model.AddressObject{Name: name, Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
		}

	case "service":
		port := strings.ReplaceAll(value, " ", "")
		if err := a.writer.CreateService(name, protocol, port); err != nil {
			return fmt.Errorf("device create service %q: %w", name, err)
		}
		insert = func(tx *inventory.Store) error {
			existing, err := tx.FindServiceByName(ctx, name)
			if err != nil || existing != nil {
				return err
			}
			return tx.CreateService(ctx, &model.ServiceObject{Name: name, Protocol: protocol, Port: port})
		}

	case "service-group":
		members := splitMembers(value)
		if len(members) == 0 {
			return fmt.Errorf("service group %q has no members", name)
		}
		if err := a.writer.CreateServiceGroup(name, members); err != nil {
			return fmt.Errorf("device create service group %q: %w", name, err)
		}
		insert = func(tx *inventory.Store) error {
			existing, err := tx.FindServiceByName(ctx, name)
			if err != nil || existing != nil {
				return err
			}
			return tx.CreateService(ctx, &model.ServiceObject{Name: name, Protocol: protocol, IsGroup: true})
		}

	default:
		return fmt.Errorf("unknown object type %q", req.ObjType)
	}

	err = a.store.Transaction(ctx, func(tx *inventory.Store) error {
		if err := insert(tx); err != nil {
			return err
		}
		req.Status = model.StatusApproved
		req.ProcessedBy = admin
		if err := tx.SaveObjectRequest(ctx, req); err != nil {
			return err
		}
		label, ok := objectTypeLabels[req.ObjType]
		if !ok {
			label = "Infrastructure Object"
		}
		return tx.AppendAudit(ctx, &model.AuditLog{
			User:         admin,
			Action:       "APPROVE_OBJECT",
			ResourceType: label,
			ResourceName: name,
			Details:      fmt.Sprintf("type=%s value=%s", req.ObjType, value),
		})
	})
	if err != nil {
		return err
	}
	slog.Info("object approved", "name", name, "type", req.ObjType, "by", admin)
	return nil
}

// ApproveRule pushes the requested rule to the device and upserts the local
// security rule with its associations.
func (a *Approver) ApproveRule(ctx context.Context, id uint, admin string) error {
	req, err := a.store.GetRuleRequest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil || req.Status != model.StatusPending {
		return ErrNotPending
	}

	name := sanitizeRuleName(req.RuleName)
	expiry := expiryFromTag(req.Tag, time.Now().UTC())
	fromZone := defaultAny(req.FromZone)
	toZone := defaultAny(req.ToZone)
	application := defaultAny(req.Application)

	svcName, newSvc, err := a.ensureService(ctx, req.ServicePort, req.Protocol)
	if err != nil {
		return err
	}

	var tags []string
	if req.Tag != "" && req.Tag != "None" {
		tags = []string{req.Tag}
	}
	spec := device.RuleSpec{
		Name:         name,
		FromZones:    []string{fromZone},
		ToZones:      []string{toZone},
		Sources:      []string{req.SourceIP},
		Destinations: []string{req.DestinationIP},
		Applications: []string{application},
		Services:     []string{svcName},
		Action:       "allow",
		Tags:         tags,
		GroupTag:     req.GroupTag,
	}
	if err := a.writer.CreateRule(spec); err != nil {
		return fmt.Errorf("device create rule %q: %w", name, err)
	}

	err = a.store.Transaction(ctx, func(tx *inventory.Store) error {
		if newSvc != nil {
			existing, err := tx.FindServiceByName(ctx, newSvc.Name)
			if err != nil {
				return err
			}
			if existing == nil {
				if err := tx.CreateService(ctx, newSvc); err != nil {
					return err
				}
			}
		}

		rule, err := tx.FindRuleByName(ctx, name)
		if err != nil {
			return err
		}
		if rule == nil {
			rule = &model.SecurityRule{
				Name:     name,
				FromZone: fromZone,
				ToZone:   toZone,
				Action:   "allow",
				TagName:  req.Tag,
				ExpireAt: expiry,
			}
			if err := tx.CreateRule(ctx, rule); err != nil {
				return err
			}
		} else {
			rule.FromZone = fromZone
			rule.ToZone = toZone
			rule.ExpireAt = expiry
			if err := tx.SaveRule(ctx, rule); err != nil {
				return err
			}
		}

		if err := link(ctx, tx, req.SourceIP, rule, sources); err != nil {
			return err
		}
		if err := link(ctx, tx, req.DestinationIP, rule, destinations); err != nil {
			return err
		}
		if err := linkService(ctx, tx, svcName, rule); err != nil {
			return err
		}

		req.Status = model.StatusApproved
		req.ProcessedBy = admin
		if err := tx.SaveRuleRequest(ctx, req); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &model.AuditLog{
			User:         admin,
			Action:       "APPROVE_RULE",
			ResourceType: "Security Rule",
			ResourceName: name,
			Details:      fmt.Sprintf("src=%s dst=%s svc=%s", req.SourceIP, req.DestinationIP, svcName),
		})
	})
	if err != nil {
		return err
	}
	slog.Info("rule approved", "name", name, "by", admin)
	return nil
}

// RejectObject closes an object request with a reason.
func (a *Approver) RejectObject(ctx context.Context, id uint, admin, reason string) error {
	req, err := a.store.GetObjectRequest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil || req.Status != model.StatusPending {
		return ErrNotPending
	}
	req.Status = model.StatusRejected
	req.AdminNotes = reasonOrDefault(reason)
	req.ProcessedBy = admin
	return a.store.SaveObjectRequest(ctx, req)
}

// RejectRule closes a rule request with a reason.
func (a *Approver) RejectRule(ctx context.Context, id uint, admin, reason string) error {
	req, err := a.store.GetRuleRequest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil || req.Status != model.StatusPending {
		return ErrNotPending
	}
	req.Status = model.StatusRejected
	req.AdminNotes = reasonOrDefault(reason)
	req.ProcessedBy = admin
	return a.store.SaveRuleRequest(ctx, req)
}

// ensureService resolves the service object a rule should reference. An
// empty or "any" port needs no object. An existing object matching the port
// or name is reused. Otherwise a new object is created on the device, named
// by protocol and port ("TCP-443"), and returned for insertion alongside the
// rule. Named services ("https") are translated through the well-known
// registry.
func (a *Approver) ensureService(ctx context.Context, port, protocol string) (string, *model.ServiceObject, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(port), " ", "")
	if clean == "" || strings.EqualFold(clean, "any") {
		return "any", nil, nil
	}
	if protocol == "" {
		protocol = "tcp"
	}

	existing, err := a.store.FindServiceByNameOrPort(ctx, clean)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		return existing.Name, nil, nil
	}

	if !portListPattern.MatchString(clean) {
		entries, ok := wellknown.Get(clean)
		if !ok {
			return "", nil, fmt.Errorf("unknown service %q", port)
		}
		protocol = entries[0].Protocol
		clean = entries[0].Port
		existing, err = a.store.FindServiceByNameOrPort(ctx, clean)
		if err != nil {
			return "", nil, err
		}
		if existing != nil {
			return existing.Name, nil, nil
		}
	}

	name := wellknown.CanonicalName(protocol, clean)
	byName, err := a.store.FindServiceByName(ctx, name)
	if err != nil {
		return "", nil, err
	}
	if byName != nil {
		return byName.Name, nil, nil
	}

	if err := a.writer.CreateService(name, protocol, clean); err != nil {
		return "", nil, fmt.Errorf("device create service %q: %w", name, err)
	}
	return name, &model.ServiceObject{Name: name, Protocol: protocol, Port: clean}, nil
}

// expiryFromTag derives a rule expiry from the infrastructure tag naming
// convention: a "30-G" tag expires 30 days from now.
func expiryFromTag(tag string, now time.Time) *time.Time {
	if tag == "" {
		return nil
	}
	m := expiryTag.FindStringSubmatch(tag)
	if m == nil {
		return nil
	}
	days, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func defaultAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "no reason given"
	}
	return reason
}
