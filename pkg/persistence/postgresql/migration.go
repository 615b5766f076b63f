package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE triggers (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(50) NOT NULL CHECK (trigger_type IN ('time_based', 'event_based', 'condition_based')),
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'inactive', 'draft')),
				time_config JSONB,
				event_config JSONB,
				condition_config JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				target JSONB,
				execution JSONB NOT NULL DEFAULT '{}',
				access_control JSONB NOT NULL DEFAULT '{}',
				total_executions BIGINT NOT NULL DEFAULT 0,
				successful_executions BIGINT NOT NULL DEFAULT 0,
				failed_executions BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				average_execution_time DOUBLE PRECISION NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_triggers_status ON triggers(status);
			CREATE INDEX idx_triggers_type ON triggers(trigger_type);
			CREATE INDEX idx_triggers_created_at ON triggers(created_at);
			CREATE INDEX idx_triggers_event ON triggers((event_config->>'event'));
		`,
	}
}
