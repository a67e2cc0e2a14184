package inventory

import (
	"context"
	"errors"

	"github.com/haimskira/net-ops-v3/internal/model"
	"gorm.io/gorm"
)

// Creation. gorm fills the generated ID on the passed struct, which callers
// need before inserting association rows referencing it.

func (s *Store) CreateAddress(ctx context.Context, obj *model.AddressObject) error {
	return s.db.WithContext(ctx).Create(obj).Error
}

func (s *Store) CreateService(ctx context.Context, obj *model.ServiceObject) error {
	return s.db.WithContext(ctx).Create(obj).Error
}

func (s *Store) CreateRule(ctx context.Context, rule *model.SecurityRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *Store) SaveRule(ctx context.Context, rule *model.SecurityRule) error {
	return s.db.WithContext(ctx).Save(rule).Error
}

func (s *Store) AddGroupMember(ctx context.Context, parentID, memberID uint) error {
	return s.db.WithContext(ctx).Create(&model.AddressGroupMember{ParentID: parentID, MemberID: memberID}).Error
}

func (s *Store) AddRuleSource(ctx context.Context, ruleID, addressID uint) error {
	return s.db.WithContext(ctx).Create(&model.RuleSource{RuleID: ruleID, AddressID: addressID}).Error
}

func (s *Store) AddRuleDestination(ctx context.Context, ruleID, addressID uint) error {
	return s.db.WithContext(ctx).Create(&model.RuleDestination{RuleID: ruleID, AddressID: addressID}).Error
}

func (s *Store) AddRuleService(ctx context.Context, ruleID, serviceID uint) error {
	return s.db.WithContext(ctx).Create(&model.RuleService{RuleID: ruleID, ServiceID: serviceID}).Error
}

func (s *Store) CreateInterface(ctx context.Context, iface *model.NetworkInterface) error {
	return s.db.WithContext(ctx).Create(iface).Error
}

// Bulk wipes. Association tables must be cleared before the entity tables
// they reference, so the two steps are exposed separately.

func (s *Store) ClearAssociations(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, m := range []any{
		&model.AddressGroupMember{},
		&model.RuleSource{},
		&model.RuleDestination{},
		&model.RuleService{},
	} {
		if err := db.Where("1 = 1").Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ClearEntities(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, m := range []any{
		&model.SecurityRule{},
		&model.AddressObject{},
		&model.ServiceObject{},
	} {
		if err := db.Where("1 = 1").Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ClearInterfaces(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&model.NetworkInterface{}).Error
}

// Lookups. Name matching is case-insensitive throughout; a miss returns
// (nil, nil) so callers can apply their own drop-unmatched policy.

func (s *Store) FindAddressByName(ctx context.Context, name string) (*model.AddressObject, error) {
	var obj model.AddressObject
	err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *Store) FindAddressByNameOrValue(ctx context.Context, identifier string) (*model.AddressObject, error) {
	var obj model.AddressObject
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) OR LOWER(value) = LOWER(?)", identifier, identifier).
		First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// AddressesMatching returns every address object whose name matches the
// identifier case-insensitively or whose value matches it exactly.
func (s *Store) AddressesMatching(ctx context.Context, identifier string) ([]model.AddressObject, error) {
	var objs []model.AddressObject
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) OR value = ?", identifier, identifier).
		Find(&objs).Error
	if err != nil {
		return nil, err
	}
	return objs, nil
}

func (s *Store) FindServiceByName(ctx context.Context, name string) (*model.ServiceObject, error) {
	var obj model.ServiceObject
	err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *Store) FindServiceByNameOrPort(ctx context.Context, identifier string) (*model.ServiceObject, error) {
	var obj model.ServiceObject
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) OR port = ?", identifier, identifier).
		First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *Store) FindRuleByName(ctx context.Context, name string) (*model.SecurityRule, error) {
	var rule model.SecurityRule
	err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Store) GetAddress(ctx context.Context, id uint) (*model.AddressObject, error) {
	var obj model.AddressObject
	err := s.db.WithContext(ctx).First(&obj, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *Store) ListRules(ctx context.Context) ([]model.SecurityRule, error) {
	var rules []model.SecurityRule
	if err := s.db.WithContext(ctx).Order("id").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) ListInterfaces(ctx context.Context) ([]model.NetworkInterface, error) {
	var ifaces []model.NetworkInterface
	if err := s.db.WithContext(ctx).Order("id").Find(&ifaces).Error; err != nil {
		return nil, err
	}
	return ifaces, nil
}

// Membership traversal.

func (s *Store) GroupMembers(ctx context.Context, parentID uint) ([]model.AddressObject, error) {
	var members []model.AddressObject
	err := s.db.WithContext(ctx).
		Joins("JOIN address_group_members agm ON agm.member_id = address_objects.id").
		Where("agm.parent_id = ?", parentID).
		Order("address_objects.id").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) GroupsContaining(ctx context.Context, memberIDs []uint) ([]model.AddressObject, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	var groups []model.AddressObject
	err := s.db.WithContext(ctx).
		Distinct("address_objects.*").
		Joins("JOIN address_group_members agm ON agm.parent_id = address_objects.id").
		Where("agm.member_id IN ?", memberIDs).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Rule collections.

func (s *Store) RuleSources(ctx context.Context, ruleID uint) ([]model.AddressObject, error) {
	var objs []model.AddressObject
	err := s.db.WithContext(ctx).
		Joins("JOIN rule_source_map rsm ON rsm.address_id = address_objects.id").
		Where("rsm.rule_id = ?", ruleID).
		Order("address_objects.id").
		Find(&objs).Error
	if err != nil {
		return nil, err
	}
	return objs, nil
}

func (s *Store) RuleDestinations(ctx context.Context, ruleID uint) ([]model.AddressObject, error) {
	var objs []model.AddressObject
	err := s.db.WithContext(ctx).
		Joins("JOIN rule_dest_map rdm ON rdm.address_id = address_objects.id").
		Where("rdm.rule_id = ?", ruleID).
		Order("address_objects.id").
		Find(&objs).Error
	if err != nil {
		return nil, err
	}
	return objs, nil
}

func (s *Store) RuleServices(ctx context.Context, ruleID uint) ([]model.ServiceObject, error) {
	var objs []model.ServiceObject
	err := s.db.WithContext(ctx).
		Joins("JOIN rule_service_map rvm ON rvm.service_id = service_objects.id").
		Where("rvm.rule_id = ?", ruleID).
		Order("service_objects.id").
		Find(&objs).Error
	if err != nil {
		return nil, err
	}
	return objs, nil
}

func (s *Store) RuleHasSource(ctx context.Context, ruleID, addressID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.RuleSource{}).
		Where("rule_id = ? AND address_id = ?", ruleID, addressID).Count(&n).Error
	return n > 0, err
}

func (s *Store) RuleHasDestination(ctx context.Context, ruleID, addressID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.RuleDestination{}).
		Where("rule_id = ? AND address_id = ?", ruleID, addressID).Count(&n).Error
	return n > 0, err
}

func (s *Store) RuleHasService(ctx context.Context, ruleID, serviceID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.RuleService{}).
		Where("rule_id = ? AND service_id = ?", ruleID, serviceID).Count(&n).Error
	return n > 0, err
}

// RulesMatchingEndpoints returns rules that reference any of the given source
// object names and any of the given destination object names, optionally
// narrowed by zone. Used by shadow-rule detection.
func (s *Store) RulesMatchingEndpoints(ctx context.Context, srcNames, dstNames []string, fromZone, toZone string) ([]model.SecurityRule, error) {
	if len(srcNames) == 0 || len(dstNames) == 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).
		Distinct("security_rules.*").
		Joins("JOIN rule_source_map rsm ON rsm.rule_id = security_rules.id").
		Joins("JOIN address_objects sa ON sa.id = rsm.address_id").
		Joins("JOIN rule_dest_map rdm ON rdm.rule_id = security_rules.id").
		Joins("JOIN address_objects da ON da.id = rdm.address_id").
		Where("sa.name IN ? AND da.name IN ?", srcNames, dstNames)
	if fromZone != "" && fromZone != "any" {
		q = q.Where("security_rules.from_zone = ?", fromZone)
	}
	if toZone != "" && toZone != "any" {
		q = q.Where("security_rules.to_zone = ?", toZone)
	}
	var rules []model.SecurityRule
	if err := q.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Workflow requests and audit trail.

func (s *Store) CreateObjectRequest(ctx context.Context, req *model.ObjectRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *Store) GetObjectRequest(ctx context.Context, id uint) (*model.ObjectRequest, error) {
	var req model.ObjectRequest
	err := s.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) SaveObjectRequest(ctx context.Context, req *model.ObjectRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

func (s *Store) CreateRuleRequest(ctx context.Context, req *model.RuleRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *Store) GetRuleRequest(ctx context.Context, id uint) (*model.RuleRequest, error) {
	var req model.RuleRequest
	err := s.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) SaveRuleRequest(ctx context.Context, req *model.RuleRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

// FindPendingRuleDuplicate reports an already-queued pending request with the
// same source, destination and port, so duplicate submissions are rejected.
func (s *Store) FindPendingRuleDuplicate(ctx context.Context, sourceIP, destinationIP, servicePort string) (*model.RuleRequest, error) {
	var req model.RuleRequest
	err := s.db.WithContext(ctx).
		Where("source_ip = ? AND destination_ip = ? AND service_port = ? AND status = ?",
			sourceIP, destinationIP, servicePort, model.StatusPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) AppendAudit(ctx context.Context, entry *model.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
