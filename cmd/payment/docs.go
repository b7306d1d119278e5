package main

// @title Appointment Payments API
// @version 1.0
// @description Tenant-scoped appointment payments with Razorpay and Stripe reconciliation
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT

// @host localhost:8083
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Payments
// @tag.description Order creation, checkout verification, refunds and lookups

// @tag.name Webhooks
// @tag.description Signature-authenticated provider callbacks

// @tag.name Health
// @tag.description Health check endpoints
