package model

// Room 实验室表 — 对应 rooms
type Room struct {
	RoomID     string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	Name       string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Location   string  `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	ManagerID  *string `gorm:"type:uuid"                                      json:"manager_id,omitempty"` // 实验室负责人
	ReaderID   *string `gorm:"type:varchar(64);uniqueIndex"                   json:"reader_id,omitempty"`  // 门禁读卡器编号
	IsArchived bool    `gorm:"not null;default:false"                         json:"is_archived"`
	BaseModel

	// 关联
	Manager *User `gorm:"foreignKey:ManagerID;references:UserID" json:"manager,omitempty"`
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }

// IsManagedBy 判断 userID 是否为该实验室负责人
func (r *Room) IsManagedBy(userID string) bool {
	return r != nil && r.ManagerID != nil && *r.ManagerID == userID
}
