package db

import "github.com/gitshopapp/orderhook/internal/models"

type Order = models.Order
type OrderStatus = models.OrderStatus
