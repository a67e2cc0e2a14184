package model

import "time"

// Object types as they appear in device configuration dumps.
const (
	TypeHost      = "host"
	TypeIPNetmask = "ip-netmask"
	TypeIPRange   = "ip-range"
	TypeFQDN      = "fqdn"
	TypeGroup     = "group"
)

// GroupValue is the placeholder stored in AddressObject.Value for groups.
// Group content lives exclusively in the address_group_members table.
const GroupValue = "group"

// Request lifecycle states shared by ObjectRequest and RuleRequest.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

type AddressObject struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"not null;index"`
	Type    string `gorm:"not null;default:'host'"`
	Value   string
	IsGroup bool `gorm:"not null;default:false"`
}

func (AddressObject) TableName() string { return "address_objects" }

type ServiceObject struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null;index"`
	Protocol string `gorm:"not null;default:'tcp'"`
	Port     string
	IsGroup  bool `gorm:"not null;default:false"`
}

func (ServiceObject) TableName() string { return "service_objects" }

type SecurityRule struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null;index"`
	FromZone string `gorm:"not null;default:'any'"`
	ToZone   string `gorm:"not null;default:'any'"`
	Action   string `gorm:"not null;default:'allow'"`
	TagName  string
	ExpireAt *time.Time
}

func (SecurityRule) TableName() string { return "security_rules" }

// Association rows. Each carries a composite unique index so the same pair
// can never be stored twice; the sync engine additionally deduplicates in
// memory before insert.

type AddressGroupMember struct {
	ID       uint `gorm:"primaryKey"`
	ParentID uint `gorm:"not null;index:idx_group_member,unique"`
	MemberID uint `gorm:"not null;index:idx_group_member,unique"`
}

func (AddressGroupMember) TableName() string { return "address_group_members" }

type RuleSource struct {
	ID        uint `gorm:"primaryKey"`
	RuleID    uint `gorm:"not null;index:idx_rule_source,unique"`
	AddressID uint `gorm:"not null;index:idx_rule_source,unique"`
}

func (RuleSource) TableName() string { return "rule_source_map" }

type RuleDestination struct {
	ID        uint `gorm:"primaryKey"`
	RuleID    uint `gorm:"not null;index:idx_rule_dest,unique"`
	AddressID uint `gorm:"not null;index:idx_rule_dest,unique"`
}

func (RuleDestination) TableName() string { return "rule_dest_map" }

type RuleService struct {
	ID        uint `gorm:"primaryKey"`
	RuleID    uint `gorm:"not null;index:idx_rule_service,unique"`
	ServiceID uint `gorm:"not null;index:idx_rule_service,unique"`
}

func (RuleService) TableName() string { return "rule_service_map" }

// NetworkInterface caches the device's interface-to-zone topology for zone
// detection. Rebuilt wholesale on every sync, no relations to other tables.
type NetworkInterface struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null;index"`
	Subnet   string `gorm:"not null"`
	ZoneName string `gorm:"not null"`
}

func (NetworkInterface) TableName() string { return "network_interfaces" }

// ObjectRequest is a pending request to create an address/service object or
// group on the device. Approval pushes it to the device first and only then
// upserts the local inventory row.
type ObjectRequest struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	ObjType     string `gorm:"not null"`
	Value       string
	Prefix      string
	Protocol    string
	RequestedBy string
	Status      string `gorm:"not null;default:'Pending';index"`
	AdminNotes  string
	ProcessedBy string
	RequestTime time.Time `gorm:"autoCreateTime"`
}

func (ObjectRequest) TableName() string { return "object_requests" }

type RuleRequest struct {
	ID            uint   `gorm:"primaryKey"`
	RuleName      string `gorm:"not null"`
	RequestedBy   string
	FromZone      string
	ToZone        string
	SourceIP      string
	DestinationIP string
	ServicePort   string
	Protocol      string `gorm:"not null;default:'tcp'"`
	Application   string `gorm:"not null;default:'any'"`
	Tag           string
	GroupTag      string
	DurationHours int    `gorm:"not null;default:48"`
	Status        string `gorm:"not null;default:'Pending';index"`
	AdminNotes    string
	ProcessedBy   string
	RequestTime   time.Time `gorm:"autoCreateTime"`
}

func (RuleRequest) TableName() string { return "rule_requests" }

type AuditLog struct {
	ID           uint   `gorm:"primaryKey"`
	User         string `gorm:"not null"`
	Action       string `gorm:"not null;index"`
	ResourceType string
	ResourceName string
	Details      string
	Timestamp    time.Time `gorm:"autoCreateTime"`
}

func (AuditLog) TableName() string { return "audit_logs" }
